package media

const (
	ContentTypeApplicationJson = "application/json"
	ContentTypeTextPlain       = "text/plain; charset=utf-8"
)
