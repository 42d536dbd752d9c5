package session

// NoticeKind classifies a user notification
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeError
)

// Notice is a short user-facing message with a title
type Notice struct {
	Kind    NoticeKind
	Title   string
	Message string
}

// Notifier shows notices to the user
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notice)

// Notify implements Notifier
func (f NotifierFunc) Notify(n Notice) {
	f(n)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notice) {}
