package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pdf-translator/translator"
)

var (
	translateFile     string
	translateFormat   string
	translateLanguage string
	translateOutput   string
	translateModel    string
	translatePages    int
	translateNoCache  bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "翻译单个 PDF 文件",
	Example: `  pdf-translator translate --file paper.pdf --target-language 中文
  pdf-translator translate --file book.pdf --format markdown --target-language English --pages 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := translator.ValidateDocument(translateFile); err != nil {
			return err
		}
		if _, err := os.Stat(translateFile); err != nil {
			return err
		}

		var cache *translator.Cache
		if cfg.Cache.Enabled {
			c, err := translator.NewCache(cfg.Cache.Dir)
			if err != nil {
				return err
			}
			if translateNoCache {
				// 忽略已有缓存，但仍然写入新结果
				c.DisableCache()
			}
			cache = c
		}

		tr, err := translator.NewFromConfig(cfg, translateModel, "", cache, logger)
		if err != nil {
			return err
		}

		output := translateOutput
		if output == "" {
			output = defaultOutputPath(translateFile, translateFormat, time.Now())
		}

		logger.Info("开始翻译",
			zap.String("file", translateFile),
			zap.String("format", translateFormat),
			zap.String("target_language", translateLanguage),
			zap.String("output", output))

		if err := tr.TranslatePDFFormatted(cmd.Context(), translateFile, translateFormat, translateLanguage, output, translatePages); err != nil {
			return fmt.Errorf("翻译失败: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	},
}

// defaultOutputPath 与上传接口相同的命名: <文件名>_<时间>.<扩展名>，放在输入文件旁边
func defaultOutputPath(input, format string, now time.Time) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	name := stem + "_" + now.Format("20060102150405") + "." + translator.OutputExtension(format)
	return filepath.Join(filepath.Dir(input), name)
}

func init() {
	f := translateCmd.Flags()
	f.StringVarP(&translateFile, "file", "f", "", "要翻译的 PDF 文件")
	f.StringVar(&translateFormat, "format", "pdf", "输出格式: pdf, markdown, html")
	f.StringVarP(&translateLanguage, "target-language", "l", "", "目标语言，例如 中文、English")
	f.StringVarP(&translateOutput, "output", "o", "", "输出文件路径 (默认在输入文件旁生成)")
	f.StringVar(&translateModel, "model", "", "模型名 (默认取配置 model.name)")
	f.IntVar(&translatePages, "pages", 0, "最多翻译的页数，仅对非 pdf 格式生效，0 表示全部")
	f.BoolVar(&translateNoCache, "no-cache", false, "忽略已有的翻译缓存")

	_ = translateCmd.MarkFlagRequired("file")
	_ = translateCmd.MarkFlagRequired("target-language")
}
