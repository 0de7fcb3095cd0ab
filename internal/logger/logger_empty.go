//go:build logless

package logger

var Log = EmptyLog{}

// EmptyLog discards everything; selected with the logless build tag for
// environments where zerolog's console writer is unwanted (e.g. tests that
// assert on stderr).
type EmptyLog struct{}

func (l EmptyLog) Debug() EmptyLog { return l }
func (l EmptyLog) Warn() EmptyLog  { return l }
func (l EmptyLog) Error() EmptyLog { return l }

func (l EmptyLog) Msg(string) {}

func (l EmptyLog) Err(error) EmptyLog          { return l }
func (l EmptyLog) Str(string, string) EmptyLog { return l }
func (l EmptyLog) Int(string, int) EmptyLog    { return l }
