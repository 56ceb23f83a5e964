package translator

import (
	"context"
	"fmt"
)

// Model 外部翻译模型。返回非 nil 错误表示传输失败（请求没有得到可用的响应）。
type Model interface {
	MakeRequest(ctx context.Context, prompt string) (string, error)
}

// ModelFunc 把普通函数适配为 Model
type ModelFunc func(ctx context.Context, prompt string) (string, error)

// MakeRequest 实现 Model
func (f ModelFunc) MakeRequest(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// TranslatePrompt 构造翻译提示词。content 可以是一段文本，也可以是 JSON 字符串数组。
func TranslatePrompt(content, targetLanguage string) string {
	return fmt.Sprintf(`Translate the following content into %s.
If the content is a JSON array of strings, reply with a JSON array of exactly the same length, where each element is the translation of the element at the same position. Do not merge, split, reorder or drop elements.
Otherwise reply with the translated text only, without explanations.

%s`, targetLanguage, content)
}
