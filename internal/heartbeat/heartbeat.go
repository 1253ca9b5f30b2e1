package heartbeat

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/weibo-relay/internal/notify/discord"
	"github.com/JakeFAU/weibo-relay/internal/relay"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// StatusNotifier delivers a status message.
type StatusNotifier interface {
	NotifyStatus(ctx context.Context, msg discord.Message) (int, error)
}

// Picker chooses an index in [0, n).
type Picker interface {
	IntN(n int) int
}

// Generator renders heartbeat messages.
type Generator struct {
	content  Content
	location *time.Location
	machine  string
	rng      Picker
}

// NewGenerator builds a Generator. A nil rng uses the global source and a nil
// location means UTC.
func NewGenerator(content Content, location *time.Location, rng Picker) *Generator {
	if location == nil {
		location = time.UTC
	}
	if rng == nil {
		rng = globalPicker{}
	}
	return &Generator{content: content, location: location, machine: MachineInfo(), rng: rng}
}

// Build returns the status message for now.
func (g *Generator) Build(now time.Time) discord.Message {
	emoji := g.content.Emojis[g.rng.IntN(len(g.content.Emojis))]
	text := g.content.Texts[g.rng.IntN(len(g.content.Texts))]
	title := g.content.Titles[g.rng.IntN(len(g.content.Titles))]

	description := fmt.Sprintf("%s %s @ %s -- %s", emoji, text, now.In(g.location).Format(timeLayout), g.machine)
	return discord.Message{Embeds: []discord.Embed{{
		Title:       title,
		Description: description,
		Color:       discord.EmbedColor,
	}}}
}

// MachineInfo returns "<hostname> <arch>" using the uname-style architecture name.
func MachineInfo() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return host + " " + machineArch(runtime.GOARCH)
}

func machineArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "i686"
	default:
		return goarch
	}
}

type globalPicker struct{}

func (globalPicker) IntN(n int) int { return rand.IntN(n) }

// Beater sends one heartbeat per Beat call.
type Beater struct {
	generator *Generator
	notifier  StatusNotifier
	clock     relay.Clock
	logger    *zap.Logger
}

// NewBeater wires a generator to its notifier.
func NewBeater(generator *Generator, notifier StatusNotifier, clock relay.Clock, logger *zap.Logger) *Beater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Beater{generator: generator, notifier: notifier, clock: clock, logger: logger}
}

// Beat sends a heartbeat. Delivery failures are logged and returned.
func (b *Beater) Beat(ctx context.Context) error {
	msg := b.generator.Build(b.clock.Now())
	status, err := b.notifier.NotifyStatus(ctx, msg)
	if err != nil {
		b.logger.Error("heartbeat failed", zap.Int("status", status), zap.Error(err))
		return err
	}
	b.logger.Info("heartbeat sent", zap.Int("status", status))
	return nil
}
