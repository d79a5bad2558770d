package index

// ProgressListener reports coarse progress of a long-running operation
// (RemoveAll, Clear) to a caller that wants to show it, without the core
// knowing anything about how it's displayed.
type ProgressListener interface {
	Begin(total int)
	Worked(n int)
	Done()
}

type noopProgress struct{}

func (noopProgress) Begin(int)  {}
func (noopProgress) Worked(int) {}
func (noopProgress) Done()      {}

// NoopProgress discards everything.
var NoopProgress ProgressListener = noopProgress{}
