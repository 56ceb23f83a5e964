package translator

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"pdf-translator/pdf"
)

// FontChoice 插入译文时使用的字体，只有 StandardFont 和 FallbackFont 两种
type FontChoice interface {
	Name() string
	File() string
	isFontChoice()
}

// StandardFont PDF 内置字体，无需字体文件
type StandardFont string

func (f StandardFont) Name() string { return string(f) }
func (f StandardFont) File() string { return "" }
func (StandardFont) isFontChoice()  {}

// FallbackFont 随程序附带的字体及其文件
type FallbackFont struct {
	Font string
	Path string
}

func (f FallbackFont) Name() string { return f.Font }
func (f FallbackFont) File() string { return f.Path }
func (FallbackFont) isFontChoice()  {}

const (
	DefaultFallbackName = "SimSun"
	DefaultFallbackFile = "fonts/simsun.ttc"
	DefaultSansSerif    = "Helvetica"
)

// cjkScripts 需要附带字体才能显示的书写系统
var cjkScripts = map[string]bool{
	"Hans": true, "Hant": true, "Hani": true,
	"Jpan": true, "Hira": true, "Kana": true,
	"Kore": true, "Hang": true,
}

// knownLanguages 按名称查找语言时的候选
var knownLanguages = []language.Tag{
	language.SimplifiedChinese,
	language.TraditionalChinese,
	language.Chinese,
	language.Japanese,
	language.Korean,
	language.English,
	language.French,
	language.German,
	language.Spanish,
	language.Portuguese,
	language.Italian,
	language.Russian,
	language.Arabic,
	language.Vietnamese,
	language.Thai,
	language.Hindi,
}

// languageAliases 常见的非标准写法
var languageAliases = map[string]language.Tag{
	"简体中文": language.SimplifiedChinese,
	"简中":   language.SimplifiedChinese,
	"汉语":   language.Chinese,
	"繁体中文": language.TraditionalChinese,
	"繁體中文": language.TraditionalChinese,
	"日语":   language.Japanese,
	"日文":   language.Japanese,
	"韩语":   language.Korean,
	"韩文":   language.Korean,
	"英语":   language.English,
	"英文":   language.English,
}

// FontResolver 根据目标语言和原字体选择插入译文的字体
type FontResolver struct {
	fallback  FallbackFont
	sansSerif StandardFont
}

// NewFontResolver 创建字体选择器，参数为空时使用默认值
func NewFontResolver(fallbackName, fallbackFile, sansSerif string) *FontResolver {
	if fallbackName == "" {
		fallbackName = DefaultFallbackName
	}
	if fallbackFile == "" {
		fallbackFile = DefaultFallbackFile
	}
	if sansSerif == "" || !pdf.IsStandardFont(sansSerif) {
		sansSerif = DefaultSansSerif
	}
	return &FontResolver{
		fallback:  FallbackFont{Font: fallbackName, Path: fallbackFile},
		sansSerif: StandardFont(sansSerif),
	}
}

// Resolve 按优先级选择字体：
// 目标语言使用中日韩文字时总是用附带字体；原字体是标准字体时保留；否则用无衬线内置字体。
func (r *FontResolver) Resolve(originalFont, targetLanguage string) FontChoice {
	if NeedsFallbackFont(targetLanguage) {
		return r.fallback
	}
	if pdf.IsStandardFont(originalFont) {
		return StandardFont(pdf.BaseFontName(originalFont))
	}
	return r.sansSerif
}

// NeedsFallbackFont 判断目标语言是否使用中日韩文字
func NeedsFallbackFont(targetLanguage string) bool {
	tag, ok := ParseLanguage(targetLanguage)
	if !ok {
		return false
	}
	script, _ := tag.Script()
	return cjkScripts[script.String()]
}

// ParseLanguage 把 "中文"、"Japanese"、"ko"、"zh-TW" 这类写法解析为语言标签
func ParseLanguage(name string) (language.Tag, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return language.Und, false
	}
	if tag, ok := languageAliases[name]; ok {
		return tag, true
	}
	if tag, err := language.Parse(name); err == nil {
		return tag, true
	}

	namers := []display.Namer{
		display.Self,
		display.English.Tags(),
		display.Tags(language.SimplifiedChinese),
		display.Tags(language.TraditionalChinese),
	}
	for _, tag := range knownLanguages {
		for _, n := range namers {
			if strings.EqualFold(n.Name(tag), name) {
				return tag, true
			}
		}
	}
	return language.Und, false
}
