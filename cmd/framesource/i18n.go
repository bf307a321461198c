// Package main provides localization for the framesource CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Playback": "再生",
		"Decoding": "デコード",
		"Debug":    "デバッグ",
		"Logging":  "ログ",

		// Commands
		"Play video files headlessly and report decoded frames": "動画ファイルをヘッドレスで再生し、デコードしたフレームを報告",
		"Play a video file on a headless canvas":                "ヘッドレスキャンバスで動画ファイルを再生",
		"Show stream information of a video file":               "動画ファイルのストリーム情報を表示",
		"Show version information":                              "バージョン情報を表示",
		"framesource version %s":                                "framesource バージョン %s",

		// Flags
		"YAML configuration file":                              "YAML設定ファイル",
		"Target frame rate (default: 60)":                      "目標フレームレート（デフォルト: 60）",
		"Canvas width (default: 640)":                          "キャンバスの幅（デフォルト: 640）",
		"Canvas height (default: 480)":                         "キャンバスの高さ（デフォルト: 480）",
		"Stop after this many ticks (0 = until end of stream)": "指定ティック数で停止（0 = ストリーム終端まで）",
		"Write a Markdown playback summary to this file":       "Markdown形式の再生サマリーをこのファイルに書き出す",
		"Abort playback after this duration":                   "この時間を過ぎたら再生を中止",
		"Directory for canvas snapshots":                       "キャンバススナップショットのディレクトリ",
		"Save every Nth canvas (default: 30)":                  "Nティックごとにキャンバスを保存（デフォルト: 30）",
		"Corrupt frame policy (skip, fail)":                    "破損フレームの扱い（skip, fail）",
		"Decoder backend (auto, native, ffmpeg)":               "デコーダーバックエンド（auto, native, ffmpeg）",
		"Path to ffmpeg executable":                            "ffmpeg実行ファイルのパス",
		"Decode every frame and count them":                    "全フレームをデコードして数える",
		"Log level (debug, info, warn, error)":                 "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                              "全てのログ出力を抑制",

		// Output
		"A video file argument is required": "動画ファイルの引数が必要です",
		"Container":                         "コンテナ",
		"Codec":                             "コーデック",
		"Backend":                           "バックエンド",
		"Size":                              "サイズ",
		"Frames":                            "フレーム数",
		"Duration":                          "再生時間",
		"Frame rate":                        "フレームレート",
		"Decoded":                           "デコード済み",
		"skipped":                           "スキップ",
	})
}
