package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/tct/core/accumulator"
	"go.dedis.ch/tct/core/digest"
	"go.dedis.ch/tct/internal/testing/fake"
)

func TestServer_Root(t *testing.T) {
	acc := makeTree(t)
	srv := NewServer("", acc, nil)

	rec := doGet(srv, "/root")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var res RootJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, RootJSON{Root: acc.Root(), Len: 2, Witnessed: 1}, res)
}

func TestServer_RequestID(t *testing.T) {
	srv := NewServer("", accumulator.New(), nil)

	req := httptest.NewRequest(http.MethodGet, "/root", nil)
	req.Header.Set("X-Request-Id", "abc")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, "abc", rec.Header().Get("X-Request-Id"))
}

func TestServer_Witness(t *testing.T) {
	acc := makeTree(t)
	srv := NewServer("", acc, nil)

	rec := doGet(srv, "/witness/"+makeCommitment(1).String())
	require.Equal(t, http.StatusOK, rec.Code)

	var proof accumulator.Proof
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &proof))
	require.Equal(t, makeCommitment(1), proof.Commitment)

	_, err := proof.Verify(acc.Root())
	require.NoError(t, err)

	rec = doGet(srv, "/witness/"+makeCommitment(2).String())
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "commitment "+makeCommitment(2).String()+" is not witnessed",
		decodeError(t, rec))

	rec = doGet(srv, "/witness/abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeError(t, rec), "malformed commitment: ")
}

func TestServer_Anchor(t *testing.T) {
	root := accumulator.Root(digest.Of(makeCommitment(5)))
	srv := NewServer("", accumulator.New(), fakeAnchors{5: root})

	rec := doGet(srv, "/anchors/5")
	require.Equal(t, http.StatusOK, rec.Code)

	var res AnchorJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, AnchorJSON{Height: 5, Root: root}, res)

	rec = doGet(srv, "/anchors/6")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, fake.GetError().Error(), decodeError(t, rec))

	rec = doGet(srv, "/anchors/99999999999999999999")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doGet(srv, "/anchors/abc")
	require.Equal(t, http.StatusNotFound, rec.Code)

	srv = NewServer("", accumulator.New(), nil)

	rec = doGet(srv, "/anchors/5")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "no anchors", decodeError(t, rec))
}

func TestServer_Metrics(t *testing.T) {
	acc := makeTree(t)
	srv := NewServer("", acc, nil)

	rec := doGet(srv, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "tct_witnessed")
}

func TestServer_Listen(t *testing.T) {
	srv := NewServer("127.0.0.1:0", makeTree(t), nil)
	require.Nil(t, srv.GetAddr())

	done := make(chan error)
	go func() {
		done <- srv.Listen()
	}()

	require.Eventually(t, func() bool { return srv.GetAddr() != nil },
		5*time.Second, 10*time.Millisecond)

	res, err := http.Get("http://" + srv.GetAddr().String() + "/root")
	require.NoError(t, err)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "Witnessed")

	srv.Stop()
	require.NoError(t, <-done)
}

func TestServer_Listen_BadAddr(t *testing.T) {
	srv := NewServer("bad://xx", accumulator.New(), nil)

	err := srv.Listen()
	require.Error(t, err)
	require.Regexp(t, "^failed to listen on 'bad://xx':", err.Error())
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeAnchors map[uint64]accumulator.Root

func (a fakeAnchors) GetAnchor(height uint64) (accumulator.Root, error) {
	root, found := a[height]
	if !found {
		return root, fake.GetError()
	}

	return root, nil
}

func makeCommitment(i byte) digest.Commitment {
	var c digest.Commitment
	c[0] = i

	return c
}

func makeTree(t *testing.T) *accumulator.Accumulator {
	acc := accumulator.New()
	require.NoError(t, acc.Insert(accumulator.Keep, makeCommitment(1)))
	require.NoError(t, acc.Insert(accumulator.Discard, makeCommitment(2)))

	return acc
}

func doGet(srv *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	var res ErrorJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	return res.Error
}
