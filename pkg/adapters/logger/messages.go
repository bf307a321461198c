package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Session
		"Opening %s":                        "%s を開いています",
		"Opened %s: %s/%s %dx%d, %d frames": "%s を開きました: %s/%s %dx%d, %d フレーム",
		"Using %s backend for codec %s":     "コーデック %[2]s に %[1]s バックエンドを使用します",
		"End of stream after %d frames":     "%d フレームでストリームが終了しました",
		"Session closed":                    "セッションを閉じました",
		"Decoded frame %d at %d ms":         "フレーム %d (%d ms) をデコードしました",

		"Skipping undecodable frame %d at %d ms: %s":  "デコードできないフレーム %d (%d ms) をスキップします: %s",
		"Timestamp %d ms went backwards, using %d ms": "タイムスタンプ %d ms が逆行したため %d ms を使用します",

		// Playback
		"Playing %s at %.1f fps":     "%s を %.1f fps で再生中",
		"Snapshot saved for tick %d": "ティック %d のスナップショットを保存しました",
		"Completion signalled":       "完了が通知されました",

		"Interrupted, shutting down...":                    "中断されました。シャットダウン中...",
		"Playback finished: %d ticks, %d frames, %.1f fps": "再生終了: %d ティック, %d フレーム, %.1f fps",

		// ffmpeg
		"Starting ffmpeg: %s": "ffmpeg を起動します: %s",
		"ffmpeg exited: %s":   "ffmpeg が終了しました: %s",

		// Errors
		"Failed to open %s: %s":       "%s を開けませんでした: %s",
		"Failed to decode frame: %s":  "フレームのデコードに失敗しました: %s",
		"Failed to close session: %s": "セッションのクローズに失敗しました: %s",
		"Failed to save snapshot: %s": "スナップショットの保存に失敗しました: %s",
	})
}
