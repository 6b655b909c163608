package logging

import "log/slog"

func Flow(name string) slog.Attr {
	return slog.String("flow", name)
}

func Invocation(id string) slog.Attr {
	return slog.String("invocation_id", id)
}

func State(state string) slog.Attr {
	return slog.String("state", state)
}

func Err(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}
