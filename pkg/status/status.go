package status

import (
	"github.com/pcj/mobyprogress"
)

// State is the compile state shown to the user.
type State string

const (
	Loading State = "loading"
	Succeed State = "succeed"
	Error   State = "error"
)

// WriteCompileStatus reports the compile state with a user-facing title.
func WriteCompileStatus(output mobyprogress.Output, state State, title string) {
	output.WriteProgress(mobyprogress.Progress{
		ID:      "compile",
		Action:  string(state),
		Message: title,
	})
}

// WriteSetupProgress reports manifest bootstrap.
func WriteSetupProgress(output mobyprogress.Output, message string) {
	output.WriteProgress(mobyprogress.Progress{
		ID:      "setup",
		Message: message,
	})
}

// WriteStageProgress reports the number of files copied into staging.
func WriteStageProgress(output mobyprogress.Output, current, total int, lastUpdate bool) {
	output.WriteProgress(mobyprogress.Progress{
		ID:         "stage",
		Action:     "staging files",
		Current:    int64(current),
		Total:      int64(total),
		Units:      "files",
		LastUpdate: lastUpdate,
	})
}
