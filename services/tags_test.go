package services

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"reflect"
	"testing"
	"time"
	"zero-tags/models"
	"zero-tags/tagcodec"
)

func sampleFrames() []models.Frame {
	return []models.Frame{
		textFrame("TIT2", "标题"),
		models.NewFrame("COMM", models.CommentContent{Lang: "eng", Description: "", Text: "first"}),
		textFrame("TPE1", "Artist"),
	}
}

func newTestService(t *testing.T) (*TagService, *WorkerPool) {
	t.Helper()
	pool := NewWorkerPool(2, 4)
	t.Cleanup(pool.Close)
	return NewTagService(tagcodec.NewAdapter(), pool), pool
}

func readFrames(t *testing.T, path string) []models.Frame {
	t.Helper()
	tag, err := tagcodec.NewAdapter().Read(path)
	if err != nil {
		t.Fatalf("读取标签失败: %v", err)
	}
	return tag.Frames()
}

// TestTagService_ReadTags 测试读取标签得到按文件顺序排列的记录。
func TestTagService_ReadTags(t *testing.T) {
	svc, _ := newTestService(t)
	path := writeFramesFile(t, t.TempDir(), "a.mp3", sampleFrames())

	records, err := svc.ReadTags(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadTags 失败: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("期望 3 条记录, 得到 %d", len(records))
	}
	if records[0]["text"] != "标题" || records[1]["lang"] != "eng" || records[2].Identifier() != "TPE1" {
		t.Errorf("记录内容不正确: %v", records)
	}
}

// TestTagService_ReplaceFrame 测试替换中间的帧时其余帧保持不变，音频数据不变。
func TestTagService_ReplaceFrame(t *testing.T) {
	svc, _ := newTestService(t)
	path := writeFramesFile(t, t.TempDir(), "a.mp3", sampleFrames())
	before := readFrames(t, path)

	req := models.MutationRequest{Index: 1, Identifier: "TALB", Payload: "Album!", Kind: models.PayloadAuto}
	if err := svc.ReplaceFrame(context.Background(), path, req, tagcodec.Version23); err != nil {
		t.Fatalf("ReplaceFrame 失败: %v", err)
	}

	after := readFrames(t, path)
	if got := frameIDs(after); !reflect.DeepEqual(got, []string{"TIT2", "TALB", "TPE1"}) {
		t.Fatalf("帧顺序不正确: %v", got)
	}
	if c, ok := after[1].Content.(models.TextContent); !ok || c.Text != "Album!" {
		t.Errorf("替换后的内容不正确: %#v", after[1].Content)
	}
	for _, i := range []int{0, 2} {
		if !reflect.DeepEqual(before[i], after[i]) {
			t.Errorf("第 %d 个帧不应改变: %#v != %#v", i, before[i], after[i])
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasSuffix(data, testAudio) {
		t.Error("音频数据被改变")
	}
}

// TestTagService_ReplaceFrameUTF16 测试 v2.3 写入需要 UTF-16 的文本后，重新读取得到原文且相邻帧不受影响，
// 多行载荷不会被当作 base64。
func TestTagService_ReplaceFrameUTF16(t *testing.T) {
	svc, _ := newTestService(t)
	frames := []models.Frame{textFrame("TIT2", "Title"), textFrame("TPE1", "Artist"), textFrame("TALB", "Album")}
	path := writeFramesFile(t, t.TempDir(), "a.mp3", frames)
	ctx := context.Background()

	req := models.MutationRequest{Index: 1, Identifier: "TPE1", Payload: "夜曲", Kind: models.PayloadText}
	if err := svc.ReplaceFrame(ctx, path, req, tagcodec.Version23); err != nil {
		t.Fatalf("ReplaceFrame 失败: %v", err)
	}
	subtitle := models.MutationRequest{Index: 0, Identifier: "TIT3", Payload: "Stay\nGold", Kind: models.PayloadAuto}
	if err := svc.ReplaceFrame(ctx, path, subtitle, tagcodec.Version23); err != nil {
		t.Fatalf("追加帧失败: %v", err)
	}

	records, err := svc.ReadTags(ctx, path)
	if err != nil {
		t.Fatalf("ReadTags 失败: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("期望 4 条记录, 得到 %d", len(records))
	}
	if records[1]["text"] != "夜曲" {
		t.Errorf("期望 夜曲, 得到 %q", records[1]["text"])
	}
	if records[2]["text"] != "Album" {
		t.Errorf("相邻帧被破坏: %v", records[2])
	}
	if records[3].Identifier() != "TIT3" || records[3]["text"] != "Stay\nGold" {
		t.Errorf("多行文本应按文本写入: %v", records[3])
	}
}

// TestTagService_ReplaceFrameAppends 测试下标 0 和越界下标都会追加帧，base64 载荷写成二进制。
func TestTagService_ReplaceFrameAppends(t *testing.T) {
	svc, _ := newTestService(t)
	path := writeFramesFile(t, t.TempDir(), "a.mp3", sampleFrames())
	ctx := context.Background()

	if err := svc.ReplaceFrame(ctx, path, models.MutationRequest{Index: 0, Identifier: "TIT2", Payload: "new"}, tagcodec.Version24); err != nil {
		t.Fatal(err)
	}
	if err := svc.ReplaceFrame(ctx, path, models.MutationRequest{Index: 99, Identifier: "PRIV", Payload: "AAEC"}, tagcodec.Version24); err != nil {
		t.Fatal(err)
	}

	after := readFrames(t, path)
	if got := frameIDs(after); !reflect.DeepEqual(got, []string{"TIT2", "COMM", "TPE1", "TIT2", "PRIV"}) {
		t.Fatalf("帧顺序不正确: %v", got)
	}
	if c, ok := after[0].Content.(models.TextContent); !ok || c.Text != "标题" {
		t.Errorf("原有的第一个帧不应改变: %#v", after[0].Content)
	}
	if c, ok := after[4].Content.(models.UnknownContent); !ok || !bytes.Equal(c.Data, []byte{0x00, 0x01, 0x02}) {
		t.Errorf("base64 载荷应写成二进制: %#v", after[4].Content)
	}
	if after[4].Source == nil || after[4].Source.Version != 4 {
		t.Errorf("文件应以 ID3v2.4 写入: %#v", after[4].Source)
	}
}

// TestTagService_ReplaceFrameErrors 测试各种失败情况都不会改动文件。
func TestTagService_ReplaceFrameErrors(t *testing.T) {
	svc, _ := newTestService(t)
	dir := t.TempDir()
	path := writeFramesFile(t, dir, "a.mp3", sampleFrames())
	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		path    string
		req     models.MutationRequest
		version tagcodec.Version
		check   func(error) bool
	}{
		{
			name:    "不支持的版本",
			ctx:     context.Background(),
			path:    path,
			req:     models.MutationRequest{Index: 1, Identifier: "TIT2", Payload: "x"},
			version: tagcodec.Version(2),
			check:   func(err error) bool { return errors.Is(err, tagcodec.ErrUnsupportedVersion) },
		},
		{
			name:    "非法帧 ID",
			ctx:     context.Background(),
			path:    path,
			req:     models.MutationRequest{Index: 1, Identifier: "bad!", Payload: "x"},
			version: tagcodec.Version23,
			check:   func(err error) bool { return errors.Is(err, ErrInvalidPayload) },
		},
		{
			name:    "二进制载荷不是 base64",
			ctx:     context.Background(),
			path:    path,
			req:     models.MutationRequest{Index: 1, Identifier: "PRIV", Payload: "not base64!", Kind: models.PayloadBinary},
			version: tagcodec.Version23,
			check:   func(err error) bool { return errors.Is(err, ErrInvalidPayload) },
		},
		{
			name:    "文件不存在",
			ctx:     context.Background(),
			path:    dir + "/missing.mp3",
			req:     models.MutationRequest{Index: 1, Identifier: "TIT2", Payload: "x"},
			version: tagcodec.Version23,
			check: func(err error) bool {
				var ioErr *tagcodec.IOError
				return errors.As(err, &ioErr) && errors.Is(err, fs.ErrNotExist)
			},
		},
		{
			name:    "上下文已取消",
			ctx:     cancelled,
			path:    path,
			req:     models.MutationRequest{Index: 1, Identifier: "TIT2", Payload: "x"},
			version: tagcodec.Version23,
			check:   func(err error) bool { return errors.Is(err, context.Canceled) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ReplaceFrame(tt.ctx, tt.path, tt.req, tt.version)
			if err == nil || !tt.check(err) {
				t.Fatalf("错误类型不正确: %v", err)
			}
			data, _ := os.ReadFile(path)
			if !bytes.Equal(data, original) {
				t.Error("失败后文件不应被改动")
			}
		})
	}
}

// failingStore 的写入总是失败。
type failingStore struct {
	tagcodec.Adapter
	writes int
}

func (s *failingStore) Write(*tagcodec.Tag, string, tagcodec.Version) error {
	s.writes++
	return &tagcodec.IOError{Op: "rename", Err: fs.ErrPermission}
}

// TestTagService_WriteFailure 测试写入失败的错误原样返回。
func TestTagService_WriteFailure(t *testing.T) {
	store := &failingStore{Adapter: *tagcodec.NewAdapter()}
	svc := NewTagService(store, nil)
	path := writeFramesFile(t, t.TempDir(), "a.mp3", sampleFrames())

	err := svc.ReplaceFrame(context.Background(), path, models.MutationRequest{Index: 1, Identifier: "TIT2", Payload: "x"}, tagcodec.Version23)
	if !errors.Is(err, fs.ErrPermission) {
		t.Errorf("期望权限错误, 得到 %v", err)
	}
	if store.writes != 1 {
		t.Errorf("期望写入 1 次, 得到 %d", store.writes)
	}

	// 没有工作池时异步形式不可用。
	if err := svc.ReadTagsAsync(path, func([]models.FrameRecord, error) {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("期望 ErrPoolClosed, 得到 %v", err)
	}
}

// TestTagService_Async 测试异步形式与阻塞形式结果一致，回调只调用一次。
func TestTagService_Async(t *testing.T) {
	svc, _ := newTestService(t)
	path := writeFramesFile(t, t.TempDir(), "a.mp3", sampleFrames())

	replaced := make(chan error, 2)
	req := models.MutationRequest{Index: 3, Identifier: "TALB", Payload: "Album", Kind: models.PayloadText}
	if err := svc.ReplaceFrameAsync(path, req, tagcodec.Version23, func(err error) { replaced <- err }); err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	select {
	case err := <-replaced:
		if err != nil {
			t.Fatalf("异步修改失败: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("等待回调超时")
	}

	type result struct {
		records []models.FrameRecord
		err     error
	}
	read := make(chan result, 2)
	if err := svc.ReadTagsAsync(path, func(r []models.FrameRecord, err error) { read <- result{r, err} }); err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	var got result
	select {
	case got = <-read:
	case <-time.After(5 * time.Second):
		t.Fatal("等待回调超时")
	}
	if got.err != nil {
		t.Fatalf("异步读取失败: %v", got.err)
	}
	want, err := svc.ReadTags(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.records, want) {
		t.Errorf("异步结果与阻塞结果不一致: %v != %v", got.records, want)
	}
	if len(want) != 4 || want[3]["text"] != "Album" {
		t.Errorf("追加的帧不正确: %v", want)
	}

	failed := make(chan error, 2)
	if err := svc.ReplaceFrameAsync(path+".missing", req, tagcodec.Version23, func(err error) { failed <- err }); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-failed:
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("期望文件不存在错误, 得到 %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("等待回调超时")
	}

	time.Sleep(50 * time.Millisecond)
	if len(replaced)+len(read)+len(failed) != 0 {
		t.Error("回调被调用了不止一次")
	}

	if err := svc.ReplaceFrameAsync(path, req, tagcodec.Version23, nil); err == nil {
		t.Error("空回调应返回错误")
	}
}
