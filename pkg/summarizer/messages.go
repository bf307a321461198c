package summarizer

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		"Playback Summary": "再生サマリー",
		"Generated":        "生成日時",
		"Source":           "ソース",
		"Results":          "結果",
		"Settings":         "設定",
		"Item":             "項目",
		"Value":            "値",

		"File":           "ファイル",
		"Container":      "コンテナ",
		"Codec":          "コーデック",
		"Backend":        "バックエンド",
		"Size":           "サイズ",
		"Frames":         "フレーム数",
		"Duration":       "長さ",
		"Ticks":          "ティック数",
		"Frames Shown":   "表示フレーム数",
		"Frames Skipped": "スキップ数",
		"Last Timestamp": "最終タイムスタンプ",
		"Actual FPS":     "実測FPS",
		"End of Stream":  "ストリーム終端",
		"Interrupted":    "中断",
		"Target FPS":     "目標FPS",
		"Unlimited":      "無制限",
		"Canvas Size":    "キャンバスサイズ",
		"Decode Policy":  "デコードポリシー",
		"Yes":            "はい",
		"No":             "いいえ",

		"%s: %d frames shown, %d skipped, last at %d ms": "%s: %d フレーム表示, %d スキップ, 最終 %d ms",
	})
}
