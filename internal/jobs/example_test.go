package jobs_test

import (
	"fmt"

	"docforms/internal/jobs"
)

func ExampleFriendlyError() {
	fmt.Println(jobs.FriendlyError("Rate limit reached, retry in 90 seconds"))
	fmt.Println(jobs.FriendlyError("boom"))
	// Output:
	// AI処理の利用上限に達しました。2分後に再度お試しください。
	// エラー: boom
}
