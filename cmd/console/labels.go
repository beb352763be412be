// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys. English text doubles as the key.
const (
	lblIndex       = "#"
	lblRecordID    = "Record ID"
	lblStatus      = "Status"
	lblProxyURL    = "Proxy URL"
	lblFound       = "found"
	lblPlaying     = "playing"
	lblNoResults   = "no results"
	lblBusy        = "querying %d recording(s)..."
	lblSummary     = "%d of %d found"
	lblLoggedIn    = "logged in as %s (%s), token valid until %s"
	lblLoggedOut   = "logged out"
	lblNotLoggedIn = "not logged in"
	lblWhoami      = "%s (%s)"
	lblDLPending   = "downloading %s..."
	lblDLSuccess   = "saved %s (%d bytes)"
	lblDLFailed    = "download of %s failed: %s"
	lblNowPlaying  = "playing %s: %s"
	lblStopped     = "playback of %s stopped"
	lblShellHelp   = "commands: q <id>... | play <n> | dl <n> | list | help | quit; a line without a command is a lookup"
	lblBadRow      = "no row %s"
	lblSuperseded  = "result discarded, a newer query is running"
)

var supported = []language.Tag{language.English, language.SimplifiedChinese}

var matcher = language.NewMatcher(supported)

func init() {
	zh := language.SimplifiedChinese
	for key, text := range map[string]string{
		lblRecordID:    "录像编号",
		lblStatus:      "状态",
		lblProxyURL:    "播放地址",
		lblFound:       "已找到",
		lblPlaying:     "播放中",
		lblNoResults:   "无结果",
		lblBusy:        "正在查询 %d 条录像...",
		lblSummary:     "共 %[2]d 条，找到 %[1]d 条",
		lblLoggedIn:    "已登录：%s（%s），令牌有效期至 %s",
		lblLoggedOut:   "已登出",
		lblNotLoggedIn: "未登录",
		lblDLPending:   "正在下载 %s...",
		lblDLSuccess:   "已保存 %s（%d 字节）",
		lblDLFailed:    "下载 %s 失败：%s",
		lblNowPlaying:  "正在播放 %s：%s",
		lblStopped:     "已停止播放 %s",
		lblShellHelp:   "命令：q <编号>... | play <序号> | dl <序号> | list | help | quit；不带命令的行按编号查询",
		lblBadRow:      "没有第 %s 行",
		lblSuperseded:  "结果已丢弃，新的查询正在进行",
	} {
		_ = message.SetString(zh, key, text)
	}
}

// resolveLanguage picks a supported tag from an explicit value or the
// usual locale variables.
func resolveLanguage(explicit string) language.Tag {
	candidates := []string{explicit, os.Getenv("LC_ALL"), os.Getenv("LC_MESSAGES"), os.Getenv("LANG")}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || c == "C" || c == "POSIX" {
			continue
		}
		// drop encodings like zh_CN.UTF-8
		if i := strings.IndexByte(c, '.'); i >= 0 {
			c = c[:i]
		}
		tag, _ := language.MatchStrings(matcher, strings.ReplaceAll(c, "_", "-"))
		return tag
	}
	return language.English
}

func newPrinter(explicit string) *message.Printer {
	return message.NewPrinter(resolveLanguage(explicit))
}
