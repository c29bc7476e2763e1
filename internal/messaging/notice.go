package messaging

type NoticeKind string

const (
	NoticeSelfContact      NoticeKind = "self_contact"
	NoticeResolutionFailed NoticeKind = "resolution_failed"
	NoticeSendFailed       NoticeKind = "send_failed"
)

// Notice is a transient user-facing message.
type Notice struct {
	Kind NoticeKind
	Text string
}

type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notice) {}

func notifierOrDiscard(n Notifier) Notifier {
	if n == nil {
		return discardNotifier{}
	}
	return n
}
