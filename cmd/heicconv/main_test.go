// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/heicconv/pkg/types"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{" INFO ", logrus.InfoLevel},
		{"error", logrus.ErrorLevel},
		{"warn", logrus.WarnLevel},
		{"", logrus.WarnLevel},
		{"chatty", logrus.WarnLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), tt.in)
	}
}

func TestConfigureLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	configureLogger(l, &buf, "info")

	l.Debug("hidden")
	l.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewCodec(t *testing.T) {
	c, err := newCodec(types.ConversionConfig{Codec: types.CodecNative, JPEGQuality: 80})
	require.NoError(t, err)
	assert.Equal(t, "native", c.Name())

	c, err = newCodec(types.ConversionConfig{})
	require.NoError(t, err)
	assert.Equal(t, "native", c.Name(), "empty codec means native")

	_, err = newCodec(types.ConversionConfig{Codec: "magic"})
	assert.ErrorContains(t, err, `unknown codec "magic"`)
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"Path", "Count"},
		[][]string{{"/photos", "12"}, {"/short"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	assert.Contains(t, out, "Path")
	assert.Contains(t, out, "/photos")
	assert.Contains(t, out, "12")
	assert.True(t, strings.HasSuffix(out, "\n"))

	assert.Empty(t, renderTable(nil, nil, nil))
}

func TestShouldColorize_NonFile(t *testing.T) {
	assert.False(t, shouldColorize(&bytes.Buffer{}))
}

func TestPrintFailureTable(t *testing.T) {
	var buf bytes.Buffer
	printFailureTable(&buf, types.BatchReport{Results: []types.ConversionResult{
		{SourcePath: "/p/ok.heic", Outcome: types.OutcomeConverted},
	}})
	assert.Empty(t, buf.String(), "no table without failures")

	printFailureTable(&buf, types.BatchReport{Results: []types.ConversionResult{
		{SourcePath: "/p/ok.heic", Outcome: types.OutcomeConverted},
		{SourcePath: "/p/bad.heic", Outcome: types.OutcomeFailed, ErrorKind: types.ErrorDecode},
	}})
	assert.Contains(t, buf.String(), "/p/bad.heic")
	assert.NotContains(t, buf.String(), "/p/ok.heic")
}
