package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nabbar/staticd/logging"
	"github.com/sirupsen/logrus"
)

func TestLogger_Info(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logging.New(buf, logrus.InfoLevel)

	log.Info("listening on %s", ":8080")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not valid JSON: %v (%s)", err, buf.String())
	}
	if !strings.Contains(line["msg"].(string), ":8080") {
		t.Fatalf("msg = %v, want it to contain :8080", line["msg"])
	}
}

func TestLogger_WithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logging.New(buf, logrus.InfoLevel).WithFields(logging.NewFields().Add("component", "worker"))

	log.Info("started")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if line["component"] != "worker" {
		t.Fatalf("component field = %v, want %q", line["component"], "worker")
	}
}

func TestLogger_ErrorIncludesCause(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logging.New(buf, logrus.InfoLevel)

	log.Error("accept failed", errors.New("connection reset"))

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if line["error"] != "connection reset" {
		t.Fatalf("error field = %v, want %q", line["error"], "connection reset")
	}
}

func TestLogger_BelowLevelIsSuppressed(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logging.New(buf, logrus.WarnLevel)

	log.Debug("should not appear")

	if buf.Len() != 0 {
		t.Fatalf("Debug below configured level produced output: %s", buf.String())
	}
}
