package translator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrMalformedResponse 模型响应无法解析为字符串数组
var ErrMalformedResponse = errors.New("malformed model response")

// batchSchema 响应必须是字符串数组
const batchSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {"type": "string"}
}`

// RequestBuilder 把文本列表编码为提示词，并把模型响应解析回列表。不调用模型。
type RequestBuilder struct {
	schema *jsonschema.Schema
}

// NewRequestBuilder 创建 RequestBuilder
func NewRequestBuilder() (*RequestBuilder, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("batch.json", bytes.NewReader([]byte(batchSchema))); err != nil {
		return nil, fmt.Errorf("加载响应 schema 失败: %w", err)
	}
	schema, err := compiler.Compile("batch.json")
	if err != nil {
		return nil, fmt.Errorf("编译响应 schema 失败: %w", err)
	}
	return &RequestBuilder{schema: schema}, nil
}

// Build 把有序文本列表编码为 JSON 数组并包装成提示词
func (b *RequestBuilder) Build(batch FragmentBatch, targetLanguage string) (string, error) {
	texts := []string(batch)
	if texts == nil {
		texts = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(texts); err != nil {
		return "", fmt.Errorf("编码文本列表失败: %w", err)
	}
	return TranslatePrompt(strings.TrimSpace(buf.String()), targetLanguage), nil
}

// Parse 从模型响应中取出字符串数组，容忍 markdown 代码块和前后说明文字
func (b *RequestBuilder) Parse(response string) ([]string, error) {
	content := strings.TrimSpace(response)
	if content == "" {
		return nil, fmt.Errorf("%w: 响应为空", ErrMalformedResponse)
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONArray(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	var lastErr error
	for _, candidate := range candidates {
		var doc any
		if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
			lastErr = err
			continue
		}
		if err := b.schema.Validate(doc); err != nil {
			lastErr = err
			continue
		}
		var out []string
		if err := json.Unmarshal([]byte(candidate), &out); err != nil {
			lastErr = err
			continue
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, lastErr)
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractJSONArray(content string) string {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(content[start : end+1])
}
