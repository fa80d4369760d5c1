package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/dmtral/aipulse/app/digest"
	"github.com/dmtral/aipulse/app/model"
)

var importanceLabel = map[model.Importance]string{
	model.ImportanceHigh:   "🔥【重要】",
	model.ImportanceMedium: "✅【关注】",
	model.ImportanceLow:    "ℹ️【了解】",
}

var importanceEmoji = map[model.Importance]string{
	model.ImportanceHigh:   "🔥",
	model.ImportanceMedium: "✅",
	model.ImportanceLow:    "ℹ️",
}

func labelFor(importance model.Importance) string {
	if label, ok := importanceLabel[importance]; ok {
		return label
	}
	return importanceLabel[model.ImportanceMedium]
}

func emojiFor(importance model.Importance) string {
	if emoji, ok := importanceEmoji[importance]; ok {
		return emoji
	}
	return importanceEmoji[model.ImportanceMedium]
}

func metaLine(rec *model.Record) string {
	if rec.Kind == model.KindBlog {
		return rec.Vendor
	}

	meta := rec.Vendor
	if rec.Product != "" && rec.Product != rec.Vendor {
		meta += " · " + rec.Product
	}
	if rec.Version != "" {
		meta += " · " + rec.Version
	}
	return meta
}

// FormatItemHTML renders one record as a Telegram HTML message.
func FormatItemHTML(rec *model.Record) string {
	e := html.EscapeString
	title := rec.DisplayTitle()
	if rec.Kind == model.KindBlog && rec.Category != "" {
		title = fmt.Sprintf("[%s] %s", rec.Category, title)
	}

	lines := []string{
		labelFor(rec.Importance),
		fmt.Sprintf("<b>%s</b>", e(title)),
		fmt.Sprintf("<i>%s</i>", e(metaLine(rec))),
		"",
		e(rec.DisplaySummary()),
		"",
		fmt.Sprintf(`<a href="%s">查看原文</a>`, e(rec.URL)),
	}
	return strings.Join(lines, "\n")
}

// FormatDigestHTML renders a digest as a Telegram HTML message, one
// section per group.
func FormatDigestHTML(dig *digest.Digest) string {
	e := html.EscapeString

	header := "📋 <b>AI 每日动态</b>"
	if dig.Kind == model.KindBlog {
		header = "📖 <b>AI 编程博客每日精选</b>"
	}

	if dig.Empty() {
		return header + "\n\n今日暂无更新"
	}

	lines := []string{header, ""}
	for _, group := range dig.Groups {
		lines = append(lines, fmt.Sprintf("<b>%s</b>", e(strings.ToUpper(group.Name))))
		for _, rec := range group.Records {
			lines = append(lines, fmt.Sprintf(`%s <a href="%s">%s</a>`,
				emojiFor(rec.Importance), e(rec.URL), e(rec.DisplayTitle())))
		}
		lines = append(lines, "")
	}
	lines = append(lines, fmt.Sprintf("共 %d 条更新", dig.Total))

	return strings.Join(lines, "\n")
}
