package tagcodec

import "fmt"

// v22FrameIDs 把 ID3v2.2 的 3 字符帧 ID 映射为 ID3v2.3 的 4 字符帧 ID。
var v22FrameIDs = map[string]string{
	"BUF": "RBUF", "CNT": "PCNT", "COM": "COMM", "CRA": "AENC",
	"ETC": "ETCO", "EQU": "EQUA", "GEO": "GEOB", "IPL": "IPLS",
	"LNK": "LINK", "MCI": "MCDI", "MLL": "MLLT", "PIC": "APIC",
	"POP": "POPM", "REV": "RVRB", "RVA": "RVAD", "SLT": "SYLT",
	"STC": "SYTC", "TAL": "TALB", "TBP": "TBPM", "TCM": "TCOM",
	"TCO": "TCON", "TCR": "TCOP", "TDA": "TDAT", "TDY": "TDLY",
	"TEN": "TENC", "TFT": "TFLT", "TIM": "TIME", "TKE": "TKEY",
	"TLA": "TLAN", "TLE": "TLEN", "TMT": "TMED", "TOA": "TOPE",
	"TOF": "TOFN", "TOL": "TOLY", "TOR": "TORY", "TOT": "TOAL",
	"TP1": "TPE1", "TP2": "TPE2", "TP3": "TPE3", "TP4": "TPE4",
	"TPA": "TPOS", "TPB": "TPUB", "TRC": "TSRC", "TRD": "TRDA",
	"TRK": "TRCK", "TSI": "TSIZ", "TSS": "TSSE", "TT1": "TIT1",
	"TT2": "TIT2", "TT3": "TIT3", "TXT": "TEXT", "TXX": "TXXX",
	"TYE": "TYER", "UFI": "UFID", "ULT": "USLT", "WAF": "WOAF",
	"WAR": "WOAR", "WAS": "WOAS", "WCM": "WCOM", "WCP": "WCOP",
	"WPB": "WPUB", "WXX": "WXXX",
}

// ValidFrameID 判断 id 是否是合法的帧 ID：3 或 4 个大写字母或数字。
func ValidFrameID(id string) bool {
	if len(id) != 3 && len(id) != 4 {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// canonicalID 返回用于内容分派的 4 字符 ID，无法映射的 v2.2 ID 原样返回。
func canonicalID(id string) string {
	if len(id) == 3 {
		if mapped, ok := v22FrameIDs[id]; ok {
			return mapped
		}
	}
	return id
}

// frameIDFor 返回帧在目标版本中使用的 ID。
func frameIDFor(id string, version byte) (string, error) {
	if len(id) == 4 {
		return id, nil
	}
	if mapped, ok := v22FrameIDs[id]; ok {
		return mapped, nil
	}
	return "", &FormatError{Message: fmt.Sprintf("帧 %s 没有 ID3v2.%d 对应的 ID", id, version)}
}
