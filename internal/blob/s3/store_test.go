package s3_test

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stoky555/ownership-graph/internal/blob/core"
	"github.com/Stoky555/ownership-graph/internal/blob/s3"
)

// fakeS3 serves the subset of path-style S3 the store uses: HEAD, GET, PUT,
// DELETE on objects and ListObjectsV2 on the bucket.
type fakeS3 struct {
	mu    sync.Mutex
	state map[string]stored
}

type stored struct {
	body        []byte
	contentType string
	meta        map[string]string
}

func response(code int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body)), Header: header}
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return f.list(req.URL.Query().Get("prefix")), nil
	}

	switch req.Method {
	case http.MethodHead, http.MethodGet:
		st, ok := f.state[key]
		if !ok {
			return response(http.StatusNotFound,
				`<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`,
				http.Header{"Content-Type": {"application/xml"}}), nil
		}
		h := http.Header{
			"Content-Length": {strconv.Itoa(len(st.body))},
			"Content-Type":   {st.contentType},
			"Etag":           {`"etag-` + key + `"`},
			"Last-Modified":  {"Mon, 01 Jan 2024 00:00:00 GMT"},
		}
		for k, v := range st.meta {
			h.Set("X-Amz-Meta-"+k, v)
		}
		body := string(st.body)
		if req.Method == http.MethodHead {
			body = ""
		}
		return response(http.StatusOK, body, h), nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") ||
			req.Header.Get("X-Amz-Decoded-Content-Length") != "" {
			body = decodeChunked(body)
		}
		meta := map[string]string{}
		for k, v := range req.Header {
			if name, ok := strings.CutPrefix(strings.ToLower(k), "x-amz-meta-"); ok {
				meta[name] = v[0]
			}
		}
		f.state[key] = stored{body: body, contentType: req.Header.Get("Content-Type"), meta: meta}
		return response(http.StatusOK, "", http.Header{"Etag": {`"etag"`}}), nil
	case http.MethodDelete:
		delete(f.state, key)
		return response(http.StatusNoContent, "", nil), nil
	}
	return response(http.StatusNotImplemented, "", nil), nil
}

func (f *fakeS3) list(prefix string) *http.Response {
	var keys []string
	for k := range f.state {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
	for _, k := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>",
			k, len(f.state[k].body))
	}
	b.WriteString("</ListBucketResult>")
	return response(http.StatusOK, b.String(), http.Header{"Content-Type": {"application/xml"}})
}

// decodeChunked strips aws-chunked framing: "<hex>[;ext]\r\n<data>\r\n" until
// a zero-length chunk, followed by optional trailers.
func decodeChunked(b []byte) []byte {
	r := bufio.NewReader(bytes.NewReader(b))
	var out bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return b
		}
		sizeHex, _, _ := strings.Cut(strings.TrimRight(line, "\r\n"), ";")
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil {
			return b
		}
		if size == 0 {
			return out.Bytes()
		}
		if _, err := io.CopyN(&out, r, size); err != nil {
			return b
		}
		_, _ = r.ReadString('\n')
	}
}

func newFake(t *testing.T) *s3.Store {
	t.Helper()
	st, err := s3.New(context.Background(), s3.Config{
		Bucket:          "calcs",
		Region:          "eu-central-1",
		Endpoint:        "https://mock.s3.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: &fakeS3{state: map[string]stored{}}},
	})
	require.NoError(t, err)
	return st
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := s3.New(context.Background(), s3.Config{})
	assert.Error(t, err)
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	st := newFake(t)
	assert.Equal(t, core.DriverS3, st.Driver())
	assert.Equal(t, "calcs", st.Bucket())

	doc := `{"version":1,"entities":[],"objects":[],"ownerships":[]}`
	info, err := st.Put(ctx, "team/a.json", strings.NewReader(doc), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"name": "A"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(doc)), info.Size)
	assert.Equal(t, "application/json", info.ContentType)
	assert.Equal(t, "etag-team/a.json", info.ETag)
	assert.Equal(t, "A", info.Metadata["name"])

	_, body, err := st.Get(ctx, "team/a.json")
	require.NoError(t, err)
	got, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, doc, string(got))

	_, err = st.Put(ctx, "team/b.yaml", strings.NewReader("version: 1\n"), core.PutOptions{})
	require.NoError(t, err)
	_, err = st.Put(ctx, "other.json", strings.NewReader("{}"), core.PutOptions{})
	require.NoError(t, err)

	list, err := st.List(ctx, "team/")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "team/a.json", list[0].Key)
	assert.Equal(t, "team/b.yaml", list[1].Key)

	ok, err := st.Delete(ctx, "team/a.json")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.Delete(ctx, "team/a.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	st := newFake(t)

	_, err := st.Head(ctx, "missing.json")
	assert.True(t, core.IsNotFoundErr(err), "%v", err)

	_, _, err = st.Get(ctx, "missing.json")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_InvalidKey(t *testing.T) {
	_, err := newFake(t).Put(context.Background(), "../escape", strings.NewReader("x"), core.PutOptions{})
	assert.ErrorIs(t, err, core.ErrInvalidKey)
}
