package common

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"

	"postboard/pkg/logger"
	"postboard/pkg/outcome"
)

// WriteOutcome renders an operation outcome as the whole response.
func WriteOutcome(ctx context.Context, w http.ResponseWriter, o outcome.Outcome) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(o.Status)
	WriteRespJSON(ctx, w, o)
}

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func RandStringRunes(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rand.Intn(len(letterRunes))]
	}
	return string(b)
}

func ParseReqBody(body io.Reader, ptr interface{}) error {
	err := json.NewDecoder(body).Decode(ptr)
	if err != nil {
		return err
	}
	return nil
}

func WriteRespJSON(ctx context.Context, w http.ResponseWriter, data interface{}) {
	resp, err := json.Marshal(data)
	if err != nil {
		logger.Log(ctx).Errorf("common: JSON marshaling failed: %v", err)
		return
	}

	_, err = w.Write(resp)
	if err != nil {
		logger.Log(ctx).Warnf("common: failed writing response: %v", err)
	}
}
