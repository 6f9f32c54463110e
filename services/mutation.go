package services

import "zero-tags/models"

// ReplaceOrAppend 按位置替换或追加一个帧，返回新的帧序列，不修改 frames。
//
// 当 0 < index < len(frames) 时，index 处的帧被 f 替换，其余帧的顺序不变；
// 其他情况（包括 index 为 0、越界或为负数）一律把 f 追加到末尾。
// 因此下标 0 永远不会替换第一个帧，这一行为是为了兼容已有的调用方而保留的。
// 替换只看位置，不比较帧 ID。
func ReplaceOrAppend(frames []models.Frame, index int, f models.Frame) []models.Frame {
	if index > 0 && index < len(frames) {
		out := make([]models.Frame, len(frames))
		copy(out, frames)
		out[index] = f
		return out
	}

	out := make([]models.Frame, len(frames), len(frames)+1)
	copy(out, frames)
	return append(out, f)
}
