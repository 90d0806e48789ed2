package countdown

import "time"

const (
	clockLayout       = "15:04:05"
	boardStartLayout  = "02/01 15:04"
	detailStartLayout = "01/02/2006 15:01"
)

// Format renders remaining seconds as the UTC time of day reached that many
// seconds after the epoch, so durations of a day or more wrap around.
func Format(seconds int) string {
	return time.UnixMilli(int64(seconds) * 1000).UTC().Format(clockLayout)
}

// FormatBoardStart renders the scheduled start as "DD/MM HH:mm".
func FormatBoardStart(t time.Time) string {
	return t.Format(boardStartLayout)
}

// FormatDetailStart renders the start time on the room detail view. The
// minutes slot shows the month, as the room detail always has.
func FormatDetailStart(t time.Time) string {
	return t.Format(detailStartLayout)
}
