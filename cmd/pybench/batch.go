package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"pybench/internal/session"
)

// batchCall is one line of batch input: a tool name and its arguments.
type batchCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// runBatchMode reads newline-delimited JSON tool calls from stdin and
// writes one result line per call to stdout. Malformed lines produce a
// failed-result line instead of aborting the stream.
func runBatchMode(s *session.Session, logger zerolog.Logger) {
	if err := runBatch(s, logger, os.Stdin, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("Batch mode failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runBatch(s *session.Session, logger zerolog.Logger, in io.Reader, out io.Writer) error {
	logger.Debug().Msg("Running in batch mode")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var call batchCall
		if err := json.Unmarshal(line, &call); err != nil {
			logger.Warn().Err(err).Msg("Malformed batch line")
			if err := enc.Encode(map[string]any{
				"success": false,
				"error":   fmt.Sprintf("malformed input line: %v", err),
			}); err != nil {
				return err
			}
			continue
		}

		logger.Info().Str("tool", call.Tool).Msg("Batch tool call")
		res := s.Execute(context.Background(), call.Tool, call.Args)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	return nil
}
