package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/ttacon/chalk"

	"snake-arena/server/logging"
)

// ConsoleSink prints one line per event:
//
//	WARN  network.outbound_overflow tick=120 session:3f2a… {"queued":64}
type ConsoleSink struct {
	logger   *log.Logger
	useColor bool
}

func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	if w == nil {
		w = io.Discard
	}
	return &ConsoleSink{logger: log.New(w, "", log.LstdFlags), useColor: cfg.UseColor}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	var line strings.Builder
	level := fmt.Sprintf("%-5s", strings.ToUpper(event.Severity.String()))
	if s.useColor {
		level = severityStyle(event.Severity).Style(level)
	}
	line.WriteString(level)
	line.WriteByte(' ')
	line.WriteString(string(event.Type))
	if event.Tick > 0 {
		fmt.Fprintf(&line, " tick=%d", event.Tick)
	}
	if actor := entityLabel(event.Actor); actor != "" {
		line.WriteByte(' ')
		line.WriteString(actor)
	}
	if len(event.Targets) > 0 {
		labels := make([]string, 0, len(event.Targets))
		for _, target := range event.Targets {
			labels = append(labels, entityLabel(target))
		}
		line.WriteString(" -> ")
		line.WriteString(strings.Join(labels, ","))
	}
	if event.Payload != nil {
		line.WriteByte(' ')
		line.WriteString(payloadText(event.Payload))
	}
	if extra := extraText(event.Extra); extra != "" {
		line.WriteByte(' ')
		line.WriteString(extra)
	}
	s.logger.Print(line.String())
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func severityStyle(sev logging.Severity) chalk.Style {
	switch sev {
	case logging.SeverityDebug:
		return chalk.Cyan.NewStyle().WithTextStyle(chalk.Dim)
	case logging.SeverityWarn:
		return chalk.Yellow.NewStyle().WithTextStyle(chalk.Bold)
	case logging.SeverityError:
		return chalk.Red.NewStyle().WithTextStyle(chalk.Bold)
	default:
		return chalk.Green.NewStyle()
	}
}

func entityLabel(ref logging.EntityRef) string {
	switch {
	case ref.ID == "":
		return string(ref.Kind)
	case ref.Kind == "":
		return ref.ID
	default:
		return string(ref.Kind) + ":" + ref.ID
	}
}

func payloadText(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(data)
}

// extraText renders extra fields as sorted key=value pairs.
func extraText(extra map[string]any) string {
	if len(extra) == 0 {
		return ""
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, extra[k]))
	}
	return strings.Join(parts, " ")
}
