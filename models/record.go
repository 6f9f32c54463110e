package models

import "fmt"

// 帧记录中使用的键名。
const (
	RecordKeyIdentifier  = "identifier"
	RecordKeyText        = "text"
	RecordKeyDescription = "description"
	RecordKeyValue       = "value"
	RecordKeyLink        = "link"
	RecordKeyLang        = "lang"
	RecordKeyMIMEType    = "mime_type"
	RecordKeyData        = "data"
)

// FrameRecord 是帧的传输表示。
// 总是包含 identifier 键，其余键由内容变体决定，二进制字段为 base64 文本。
type FrameRecord map[string]string

// Identifier 返回记录中的帧 ID。
func (r FrameRecord) Identifier() string {
	return r[RecordKeyIdentifier]
}

// Has 判断记录中是否存在指定的键。
func (r FrameRecord) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// PayloadKind 指定替换请求中载荷的解释方式。
type PayloadKind string

const (
	// PayloadAuto 先尝试 base64 解码，成功即视为二进制，否则视为文本。
	// 恰好是合法 base64 的文本也会被当作二进制写入。
	PayloadAuto PayloadKind = "auto"
	// PayloadText 总是把载荷当作纯文本。
	PayloadText PayloadKind = "text"
	// PayloadBinary 要求载荷必须是合法的 base64。
	PayloadBinary PayloadKind = "binary"
)

// ParsePayloadKind 解析载荷类型，空字符串视为 PayloadAuto。
func ParsePayloadKind(s string) (PayloadKind, error) {
	switch PayloadKind(s) {
	case "", PayloadAuto:
		return PayloadAuto, nil
	case PayloadText:
		return PayloadText, nil
	case PayloadBinary:
		return PayloadBinary, nil
	}
	return "", fmt.Errorf("未知的载荷类型: %q", s)
}

// MutationRequest 描述一次按位置替换帧的请求。
// 由调用方逐次构造，只被消费一次，不会持久化。
type MutationRequest struct {
	Index      int
	Identifier string
	Payload    string
	Kind       PayloadKind
}
