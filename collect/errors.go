package collect

import (
	"errors"
	"fmt"
)

var ErrUnexpectedStatus = errors.New("unexpected status code")

// FetchError 网络错误、超时或非 2xx 响应（429/503 除外）
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
