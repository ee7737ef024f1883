package jobs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"docforms/internal/api"
	"docforms/internal/auth"
	"docforms/pkg/models"
)

const (
	genericFailure  = "処理中にエラーが発生しました。"
	longFailure     = "処理中にエラーが発生しました。詳細はログをご確認ください。"
	maxShownRunes   = 200
	retryAfterRegex = `(?i)(\d+)\s*seconds?`
)

var retryAfter = regexp.MustCompile(retryAfterRegex)

type rule struct {
	match   func(lower string) bool
	message string
}

func containsAny(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
}

func containsAll(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if !strings.Contains(s, sub) {
				return false
			}
		}
		return true
	}
}

// rules are tried in order; the first match wins.
var rules = []rule{
	{containsAny("quota", "billing"), "AI処理のクォータが不足しています。システム管理者にお問い合わせください。"},
	{containsAny("authentication", "api key"), "AI処理の認証に失敗しました。システム管理者にお問い合わせください。"},
	{containsAny("timeout"), "処理がタイムアウトしました。もう一度お試しください。"},
	{containsAll("pdf", "corrupt"), "PDFファイルが破損しています。別のファイルをアップロードしてください。"},
	{containsAny("file not found", "document not found"), "ファイルが見つかりませんでした。再度アップロードしてください。"},
	{containsAny("file size", "too large"), "ファイルサイズが大きすぎます。10MB以下のファイルをアップロードしてください。"},
	{containsAny("textract"), "テキスト抽出に失敗しました。別の抽出方式をお試しください。"},
	{containsAll("vision", "failed"), "ビジョンAIでの解析に失敗しました。別の抽出方式をお試しください。"},
	{containsAny("structure", "parsing"), "データの構造化に失敗しました。PDFの内容が読み取れない可能性があります。"},
	{containsAny("template not found"), "テンプレートが見つかりませんでした。テンプレートを再度選択してください。"},
	{containsAll("template", "invalid"), "テンプレートの形式が正しくありません。テンプレートを確認してください。"},
	{containsAny("conversion", "convert"), "Excel変換に失敗しました。構造化データを確認してください。"},
	{containsAny("network", "connection"), "ネットワークエラーが発生しました。インターネット接続を確認してください。"},
	{containsAny("s3", "storage"), "ファイルの保存に失敗しました。もう一度お試しください。"},
	{containsAny("dynamodb", "database"), "データベースエラーが発生しました。もう一度お試しください。"},
	{containsAny("permission", "access denied", "forbidden"), "アクセス権限がありません。システム管理者にお問い合わせください。"},
	{containsAny("invalid", "malformed"), "入力データの形式が正しくありません。内容を確認してください。"},
}

// FriendlyError maps the free-text error of a failed job to guidance for the
// user. Unknown messages are shown prefixed, unless they are too long to be useful.
func FriendlyError(message string) string {
	if strings.TrimSpace(message) == "" {
		return genericFailure
	}
	lower := strings.ToLower(message)

	if strings.Contains(lower, "rate limit") {
		return rateLimitMessage(message)
	}
	for _, r := range rules {
		if r.match(lower) {
			return r.message
		}
	}

	if utf8.RuneCountInString(message) > maxShownRunes {
		return longFailure
	}
	return "エラー: " + message
}

func rateLimitMessage(message string) string {
	m := retryAfter.FindStringSubmatch(message)
	if m == nil {
		return "AI処理の利用上限に達しました。しばらく待ってから再度お試しください。"
	}
	seconds, err := strconv.Atoi(m[1])
	if err != nil {
		return "AI処理の利用上限に達しました。しばらく待ってから再度お試しください。"
	}
	if seconds >= 60 {
		minutes := (seconds + 59) / 60
		return fmt.Sprintf("AI処理の利用上限に達しました。%d分後に再度お試しください。", minutes)
	}
	return fmt.Sprintf("AI処理の利用上限に達しました。%d秒後に再度お試しください。", seconds)
}

var stepMessages = map[string]string{
	"ocr":                 "テキストを抽出しています...",
	"vision":              "PDFを解析しています...",
	"ai_structure":        "AIが構造化しています...",
	"ai_vision_structure": "AIがPDFから構造化しています...",
	"convert":             "Excelに変換しています...",
	"enhance":             "文章を改善しています...",
	"summary":             "紹介文を生成しています...",
}

// StatusMessage describes a job's progress.
func StatusMessage(status models.JobStatus, step string) string {
	switch status {
	case models.JobQueued:
		return "処理を開始します..."
	case models.JobRunning:
		if msg, ok := stepMessages[step]; ok {
			return msg
		}
		return "処理中です..."
	case models.JobSucceeded, models.JobCompleted:
		return "処理が完了しました！"
	case models.JobFailed:
		return "処理に失敗しました"
	default:
		return "処理中です..."
	}
}

// DescribeError turns a request error into a message for the user.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}

	var failed *FailedError
	var netErr net.Error
	switch {
	case errors.As(err, &failed):
		return failed.Friendly()
	case errors.Is(err, auth.ErrNotLoggedIn), errors.Is(err, api.ErrUnauthorized):
		return "ログインの有効期限が切れました。再度ログインしてください。"
	case errors.Is(err, api.ErrNotFound):
		return "対象が見つかりませんでした。一覧から選び直してください。"
	case errors.Is(err, api.ErrInvalidVariables):
		return "テンプレート変数の解析に失敗しました。JSONの形式を確認してください。"
	case errors.Is(err, context.DeadlineExceeded):
		return "処理がタイムアウトしました。もう一度お試しください。"
	case errors.Is(err, context.Canceled):
		return "処理を中断しました。"
	}

	if detail := api.Detail(err); detail != "" {
		return FriendlyError(detail)
	}
	if status := api.StatusCode(err); status >= 500 {
		return "サーバーでエラーが発生しました。しばらく待ってから再度お試しください。"
	}
	if errors.As(err, &netErr) {
		return "ネットワークエラーが発生しました。インターネット接続を確認してください。"
	}
	return "通信エラーが発生しました。もう一度お試しください。"
}

// FailedError reports a job that reached the "failed" state.
type FailedError struct {
	Job models.Job
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("job %s failed at step %q: %s", e.Job.JobID, e.Job.Step, e.Job.Error)
}

// Friendly is the user-facing text of the failure.
func (e *FailedError) Friendly() string {
	return FriendlyError(e.Job.Error)
}

// Outcome converts a terminal snapshot into an error: nil on success, a
// *FailedError otherwise.
func Outcome(job *models.Job) error {
	if job.Status.Succeeded() {
		return nil
	}
	return &FailedError{Job: *job}
}
