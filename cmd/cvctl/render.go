package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cvBuilder/internal/document"
	"cvBuilder/internal/pdf"
	"cvBuilder/internal/render"
	"cvBuilder/internal/resume"
)

type renderFlags struct {
	cvID        uint
	userID      uint
	format      string
	out         string
	scale       float64
	compact     bool
	preview     bool
	margin      float64
	headerColor string
	fontFamily  string
	fontSize    float64
}

// stylePatch 只带上用户显式设置过的样式参数。
func (f renderFlags) stylePatch(cmd *cobra.Command) document.StylePatch {
	var patch document.StylePatch
	if cmd.Flags().Changed("margin") {
		patch.Margin = &f.margin
	}
	if cmd.Flags().Changed("header-color") {
		patch.HeaderColor = &f.headerColor
	}
	if cmd.Flags().Changed("font-family") {
		patch.FontFamily = &f.fontFamily
	}
	if cmd.Flags().Changed("font-size") {
		patch.FontSize = &f.fontSize
	}
	return patch
}

func renderCmd(a *app, db *dbFlags) *cobra.Command {
	var f renderFlags

	c := &cobra.Command{
		Use:   "render",
		Short: "渲染一份 CV 为 HTML、PDF 或文档 JSON",
		Long:  "--user 为 0 时按公开 CV 渲染，非公开的 CV 会被拒绝。",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := strings.ToLower(strings.TrimSpace(f.format))
			switch format {
			case "html", "pdf", "json":
			default:
				return fmt.Errorf("unsupported format %q (html|pdf|json)", f.format)
			}

			cfg, conn, err := a.connect(db)
			if err != nil {
				return err
			}

			var exporter resume.Exporter
			if format == "pdf" {
				e, err := pdf.NewExporterFromConfig(cfg.Render, a.logger)
				if err != nil {
					return err
				}
				exporter = e
			}
			service := resume.NewServiceFromDB(conn, render.MustNew(), exporter)

			ctx := cmd.Context()
			style := f.stylePatch(cmd)

			var data []byte
			switch format {
			case "json":
				var doc document.Document
				if f.userID == 0 {
					doc, err = service.ConstructPublic(ctx, f.cvID, style, f.compact)
				} else {
					doc, err = service.Construct(ctx, f.cvID, f.userID, style, f.compact)
				}
				if err == nil {
					data, err = json.MarshalIndent(doc, "", "  ")
				}
			case "html":
				opts := resume.HTMLOptions{Preview: f.preview, Compact: f.compact}
				var html string
				if f.userID == 0 {
					html, err = service.RenderPublicHTML(ctx, f.cvID, style, opts)
				} else {
					html, err = service.RenderHTML(ctx, f.cvID, f.userID, style, opts)
				}
				data = []byte(html)
			case "pdf":
				opts := resume.PDFOptions{Scale: f.scale, Compact: f.compact}
				if f.userID == 0 {
					data, err = service.RenderPublicPDF(ctx, f.cvID, style, opts)
				} else {
					data, err = service.RenderPDF(ctx, f.cvID, f.userID, style, opts)
				}
			}
			if err != nil {
				return err
			}
			return writeOutput(a.stdout, f.out, data)
		},
	}

	fl := c.Flags()
	fl.UintVar(&f.cvID, "cv", 0, "CV ID（必填）")
	fl.UintVar(&f.userID, "user", 0, "所有者用户 ID；为 0 时走公开访问")
	fl.StringVarP(&f.format, "format", "f", "html", "输出格式: html|pdf|json")
	fl.StringVarP(&f.out, "out", "o", "-", "输出文件，- 表示标准输出")
	fl.Float64Var(&f.scale, "scale", 0, "PDF 缩放，(0.1, 2]，0 使用默认值")
	fl.BoolVar(&f.compact, "compact", false, "省略空章节")
	fl.BoolVar(&f.preview, "preview", false, "HTML 预览模式，标记空章节")
	fl.Float64Var(&f.margin, "margin", 0, "页边距（英寸）")
	fl.StringVar(&f.headerColor, "header-color", "", "标题颜色，如 #1f4e79")
	fl.StringVar(&f.fontFamily, "font-family", "", "正文字体")
	fl.Float64Var(&f.fontSize, "font-size", 0, "正文字号（pt）")

	_ = c.MarkFlagRequired("cv")
	return c
}

func sectionsCmd(a *app, db *dbFlags) *cobra.Command {
	var cvID, userID uint

	c := &cobra.Command{
		Use:   "sections",
		Short: "查看 CV 的章节顺序与标题",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, conn, err := a.connect(db)
			if err != nil {
				return err
			}
			service := resume.NewServiceFromDB(conn, render.MustNew(), nil)
			cfg, err := service.GetSectionConfig(cmd.Context(), cvID, userID)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(a.stdout, "-", data)
		},
	}
	c.Flags().UintVar(&cvID, "cv", 0, "CV ID（必填）")
	c.Flags().UintVar(&userID, "user", 0, "所有者用户 ID（必填）")
	_ = c.MarkFlagRequired("cv")
	_ = c.MarkFlagRequired("user")
	return c
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
