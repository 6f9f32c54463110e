package services

import (
	"context"
	"errors"
	"fmt"
	"zero-tags/logger"
	"zero-tags/models"
	"zero-tags/tagcodec"

	"github.com/sirupsen/logrus"
)

// TagStore 定义了标签读写的接口，由 tagcodec.Adapter 实现。
type TagStore interface {
	// Read 读取文件开头的标签。
	Read(path string) (*tagcodec.Tag, error)
	// Write 按指定版本重写文件的标签，失败时不得改动原文件。
	Write(tag *tagcodec.Tag, path string, version tagcodec.Version) error
}

// TagService 提供标签的查询和修改操作，每个操作都有阻塞和异步两种形式。
// 两种形式执行完全相同的逻辑，异步形式只是把它交给工作池执行。
//
// 同一文件的并发修改不做协调，后写入者覆盖先写入者。
type TagService struct {
	store TagStore
	pool  *WorkerPool
}

// NewTagService 创建一个 TagService。pool 为 nil 时只能使用阻塞形式。
func NewTagService(store TagStore, pool *WorkerPool) *TagService {
	return &TagService{store: store, pool: pool}
}

// Frames 读取文件中的帧序列。
func (s *TagService) Frames(ctx context.Context, path string) ([]models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tag, err := s.store.Read(path)
	if err != nil {
		logger.WithFields(logrus.Fields{"path": path}).Warnf("读取标签失败: %v", err)
		return nil, err
	}
	logger.Debugf("读取到 ID3v2.%d 标签 %s，共 %d 个帧", tag.Version, path, tag.Len())
	return tag.Frames(), nil
}

// ReadTags 读取文件中的帧并转换为传输记录，没有副作用。
func (s *TagService) ReadTags(ctx context.Context, path string) ([]models.FrameRecord, error) {
	frames, err := s.Frames(ctx, path)
	if err != nil {
		return nil, err
	}
	return EncodeFrames(frames), nil
}

// ReplaceFrame 读取标签，按 req 替换或追加一个帧，再以 version 写回文件。
// 任何一步失败都会在写入之前中止，写入本身是原子的。
// ctx 只在开始执行前检查，开始后不会中途取消。
func (s *TagService) ReplaceFrame(ctx context.Context, path string, req models.MutationRequest, version tagcodec.Version) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !version.Valid() {
		return &tagcodec.FormatError{
			Path:    path,
			Message: fmt.Sprintf("不能写入 %s", version),
			Err:     tagcodec.ErrUnsupportedVersion,
		}
	}
	if !tagcodec.ValidFrameID(req.Identifier) {
		return fmt.Errorf("%w: 帧 ID %q 不合法", ErrInvalidPayload, req.Identifier)
	}

	fields := logrus.Fields{
		"path":       path,
		"index":      req.Index,
		"identifier": req.Identifier,
		"version":    version.String(),
	}

	content, err := DecodePayload(req.Identifier, req.Payload, req.Kind)
	if err != nil {
		return err
	}
	if req.Kind != models.PayloadText && content.Kind() == models.KindUnknown && req.Payload != "" {
		// 自动模式下恰好是合法 base64 的文本也会按二进制写入。
		logger.WithFields(fields).Debug("载荷按 base64 解码为二进制内容")
	}

	tag, err := s.store.Read(path)
	if err != nil {
		logger.WithFields(fields).Warnf("读取标签失败: %v", err)
		return err
	}

	frames := tag.Frames()
	tag.SetFrames(ReplaceOrAppend(frames, req.Index, models.NewFrame(req.Identifier, content)))
	if err := s.store.Write(tag, path, version); err != nil {
		logger.WithFields(fields).Errorf("写入标签失败: %v", err)
		return err
	}

	fields["appended"] = tag.Len() > len(frames)
	logger.WithFields(fields).Info("标签帧已更新")
	return nil
}

// ReadTagsAsync 在工作池中执行 ReadTags，完成后在 worker goroutine 上调用 done 恰好一次。
func (s *TagService) ReadTagsAsync(path string, done func([]models.FrameRecord, error)) error {
	if done == nil {
		return errors.New("回调不能为空")
	}
	return s.submit(func() {
		var records []models.FrameRecord
		var err error
		defer func() {
			if r := recover(); r != nil {
				records, err = nil, fmt.Errorf("读取标签时发生 panic: %v", r)
			}
			done(records, err)
		}()
		records, err = s.ReadTags(context.Background(), path)
	})
}

// ReplaceFrameAsync 在工作池中执行 ReplaceFrame，完成后在 worker goroutine 上调用 done 恰好一次。
func (s *TagService) ReplaceFrameAsync(path string, req models.MutationRequest, version tagcodec.Version, done func(error)) error {
	if done == nil {
		return errors.New("回调不能为空")
	}
	return s.submit(func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("修改标签时发生 panic: %v", r)
			}
			done(err)
		}()
		err = s.ReplaceFrame(context.Background(), path, req, version)
	})
}

func (s *TagService) submit(task func()) error {
	if s.pool == nil {
		return ErrPoolClosed
	}
	return s.pool.Submit(task)
}
