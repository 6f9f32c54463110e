package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

// TestInit_File 测试日志同时写入文件，且为 JSON 格式。
func TestInit_File(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "app.log")

	file, err := Init(path, "debug")
	if err != nil {
		t.Fatalf("初始化日志失败: %v", err)
	}
	defer file.Close()
	SetOutput(file)

	WithFields(logrus.Fields{"path": "a.mp3", "index": 1}).Debug("读取标签")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("日志不是 JSON 格式: %v, %s", err, data)
	}
	if entry["msg"] != "读取标签" || entry["path"] != "a.mp3" || entry["level"] != "debug" {
		t.Errorf("日志内容不正确: %v", entry)
	}
}

// TestInit_Level 测试日志级别的解析顺序。
func TestInit_Level(t *testing.T) {
	testCases := []struct {
		name  string
		env   string
		level string
		want  logrus.Level
	}{
		{"配置中的级别", "", "warn", logrus.WarnLevel},
		{"环境变量优先", "error", "debug", logrus.ErrorLevel},
		{"大写", "", "DEBUG", logrus.DebugLevel},
		{"空值使用默认级别", "", "", logrus.InfoLevel},
		{"无效值使用默认级别", "", "verbose", logrus.InfoLevel},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tc.env)
			if _, err := Init("", tc.level); err != nil {
				t.Fatal(err)
			}
			if got := GetLogger().GetLevel(); got != tc.want {
				t.Errorf("期望级别 %s, 得到 %s", tc.want, got)
			}
		})
	}
}

// TestWithRequestID 测试请求 ID 字段。
func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	WithRequestID("abc").Info("请求开始")

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("日志不是 JSON 格式: %v", err)
	}
	if entry["request_id"] != "abc" {
		t.Errorf("期望 request_id 为 abc, 得到 %v", entry["request_id"])
	}
}

// TestInit_BadFile 测试日志文件无法打开时返回错误。
func TestInit_BadFile(t *testing.T) {
	if _, err := Init(filepath.Join(t.TempDir(), "missing", "app.log"), "info"); err == nil {
		t.Error("期望返回错误")
	}
}

// TestDebugf 测试调试日志只在 debug 级别输出。
func TestDebugf(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer

	if _, err := Init("", "info"); err != nil {
		t.Fatal(err)
	}
	SetOutput(&buf)
	Debugf("读取到 %d 个帧", 3)
	if buf.Len() != 0 {
		t.Errorf("info 级别不应输出调试日志: %s", buf.String())
	}

	if _, err := Init("", "debug"); err != nil {
		t.Fatal(err)
	}
	SetOutput(&buf)
	Debugf("读取到 %d 个帧", 3)

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("日志不是 JSON 格式: %v", err)
	}
	if entry["msg"] != "读取到 3 个帧" || entry["level"] != "debug" {
		t.Errorf("日志内容不正确: %v", entry)
	}
}
