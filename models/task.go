package models

import (
	"strings"
	"time"
)

// 任务状态
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// TranslateTask 一次上传翻译的记录
type TranslateTask struct {
	ID             string    `json:"id"`
	RequestID      string    `json:"requestId,omitempty"`
	SourceFile     string    `json:"sourceFile"`
	TargetLanguage string    `json:"targetLanguage"`
	FileFormat     string    `json:"fileFormat"`
	ModelName      string    `json:"modelName"`
	Status         string    `json:"status"` // processing, completed, failed
	CreatedAt      time.Time `json:"createdAt"`
	CompletedAt    time.Time `json:"completedAt,omitempty"`
	OutputFile     string    `json:"outputFile,omitempty"`
}

// UploadRequest 上传接口的表单参数
type UploadRequest struct {
	ModelName      string `form:"model_name"`
	APIKey         string `form:"api_key"`
	OpenAIAPIKey   string `form:"openai_api_key"`
	FileFormat     string `form:"file_format"`
	TargetLanguage string `form:"target_language"`
}

// Key 返回 API Key，api_key 优先于 openai_api_key
func (r UploadRequest) Key() string {
	if r.APIKey != "" {
		return r.APIKey
	}
	return r.OpenAIAPIKey
}

// WithDefaults 用默认值补齐模型名和 API Key
func (r UploadRequest) WithDefaults(modelName, apiKey string) UploadRequest {
	r.ModelName = strings.TrimSpace(r.ModelName)
	if r.ModelName == "" {
		r.ModelName = modelName
	}
	if r.Key() == "" {
		r.APIKey = apiKey
	}
	return r
}

// Complete 所有必填参数是否齐全
func (r UploadRequest) Complete() bool {
	return r.ModelName != "" &&
		r.Key() != "" &&
		strings.TrimSpace(r.FileFormat) != "" &&
		strings.TrimSpace(r.TargetLanguage) != ""
}
