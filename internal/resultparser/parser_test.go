package resultparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedDecodesFinalResult(t *testing.T) {
	p := New()
	p.Feed([]byte(`{"type":"test_result","data":{"id":1,"status":"passed"}}` + "\n"))
	p.Feed([]byte(`{"type":"final_result","data":{"total":1,"passed":1,"failed":0,"execution_time":12.5,"cases":[{"id":1,"status":"passed"}]}}` + "\n"))

	final := p.Final()
	require.NotNil(t, final)
	assert.Equal(t, 1, final.Total)
	assert.Equal(t, 1, final.Passed)
	assert.Equal(t, 0, final.Failed)
	assert.Equal(t, 1, p.TestResultsObserved())
}

func TestFeedHandlesPartialLinesAcrossChunks(t *testing.T) {
	p := New()
	p.Feed([]byte(`{"type":"final_result","data":{"total":2,"pas`))
	p.Feed([]byte(`sed":2,"failed":0,"execution_time":1,"cases":[]}}` + "\n"))

	final := p.Final()
	require.NotNil(t, final)
	assert.Equal(t, 2, final.Total)
}

func TestFeedStripsControlCharsAndLogPrefix(t *testing.T) {
	p := New()
	// Simulate an 8-byte docker multiplex header rendered as junk bytes
	// before the JSON payload, plus embedded control characters.
	noisy := append([]byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x19}, []byte(`junk{"type":"final_result","data":{"total":1,"passed":1,"failed":0,"execution_time":1,"cases":[]}}`+"\n")...)
	p.Feed(noisy)

	final := p.Final()
	require.NotNil(t, final)
	assert.Equal(t, 1, final.Total)
}

func TestFeedLineOfOnlyControlCharsDoesNotPanic(t *testing.T) {
	p := New()
	assert.NotPanics(t, func() {
		p.Feed([]byte{0x00, 0x01, 0x02, '\n'})
	})
	assert.Nil(t, p.Final())
}

func TestFinalResultBeforeLastTestResultIsStillAuthoritative(t *testing.T) {
	p := New()
	p.Feed([]byte(`{"type":"final_result","data":{"total":2,"passed":1,"failed":1,"execution_time":5,"cases":[{"id":1,"status":"passed"},{"id":2,"status":"failed"}]}}` + "\n"))
	p.Feed([]byte(`{"type":"test_result","data":{"id":2,"status":"failed"}}` + "\n"))

	final := p.Final()
	require.NotNil(t, final)
	assert.Equal(t, 2, final.Total)
	assert.Len(t, final.Cases, 2)
}

func TestEmptyLineIsSkipped(t *testing.T) {
	p := New()
	p.Feed([]byte("   \n"))
	assert.Nil(t, p.Final())
	assert.Equal(t, 0, p.TestResultsObserved())
}

func TestUnparsableLineIsSkippedNotFatal(t *testing.T) {
	p := New()
	p.Feed([]byte("not json at all\n"))
	p.Feed([]byte(`{"type":"final_result","data":{"total":0,"passed":0,"failed":0,"execution_time":0,"cases":[]}}` + "\n"))
	require.NotNil(t, p.Final())
}
