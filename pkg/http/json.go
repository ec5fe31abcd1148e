package xhttp

import (
	"encoding/json"
	"errors"
)

var ErrEmptyBody = errors.New("request body is empty")

type errorBody struct {
	Error string `json:"error"`
}

func ReadJSON(ctx *RequestCtx, v interface{}) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return ErrEmptyBody
	}
	return json.Unmarshal(body, v)
}

func WriteJSON(ctx *RequestCtx, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		status = StatusInternalServerError
		b = []byte(`{"error":"failed to encode response"}`)
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(b)
}

// WriteError writes {"error": msg}.
func WriteError(ctx *RequestCtx, status int, msg string) {
	WriteJSON(ctx, status, errorBody{Error: msg})
}
