package logsink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalSink_AppendsOneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatlog.jsonl")
	sink, err := New("local", map[string]interface{}{"path": path})
	require.NoError(t, err)

	ts := time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC)
	require.NoError(t, sink.Append(context.Background(), ts, "Student", "When is the open day?", "June 3rd, per Calendar.pdf."))
	require.NoError(t, sink.Append(context.Background(), ts, "Guardian", "Is there a bus?", "No information is available."))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var records []localRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record localRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		records = append(records, record)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, records, 2)
	require.Equal(t, "Student", records[0].Role)
	require.Equal(t, "When is the open day?", records[0].Question)
	require.Equal(t, "2026-05-12T09:30:00Z", records[0].Timestamp)
	require.Equal(t, "Guardian", records[1].Role)
}

func TestNew_UnknownSinkType(t *testing.T) {
	_, err := New("carrier-pigeon", nil)
	require.Error(t, err)
}
