package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/pixstore/internal/server/http/dto"
)

// maxDecompressedBody bounds what a gzip request body may expand to.
const maxDecompressedBody = 1 << 20

type limitedBody struct {
	io.Reader
	closers []io.Closer
}

func (b limitedBody) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// DecompressRequest transparently handles gzip encoded requests.
func DecompressRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Content-Encoding"), "gzip") {
			c.Next()
			return
		}

		originalBody := c.Request.Body
		reader, err := gzip.NewReader(originalBody)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_request"})
			return
		}

		c.Request.Body = limitedBody{
			Reader:  io.LimitReader(reader, maxDecompressedBody),
			closers: []io.Closer{reader, originalBody},
		}
		c.Request.Header.Del("Content-Encoding")
		c.Request.ContentLength = -1
		c.Next()
	}
}
