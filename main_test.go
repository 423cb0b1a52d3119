package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginChecker(t *testing.T) {
	assert.Nil(t, originChecker([]string{"*"}))
	assert.Nil(t, originChecker(nil))

	check := originChecker([]string{"https://civic.example.com", "http://localhost:3000"})
	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, check(req), "same-origin requests carry no Origin header")

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
}
