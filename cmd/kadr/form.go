package main

import (
	"context"
	"os"

	"github.com/alfredjeanlab/kadr/internal/config"
	"github.com/alfredjeanlab/kadr/internal/events"
	"github.com/alfredjeanlab/kadr/internal/picker"
)

// natsURL returns the event bus the CLI publishes to and watches, if any.
func natsURL() string {
	if s := os.Getenv("KADR_NATS_URL"); s != "" {
		return s
	}
	if r, ok := activeRemote(); ok {
		return r.NATSURL
	}
	return ""
}

// newForm builds a picker form wired to the catalog client, the CLI logger,
// the picker settings from the environment and, when configured, NATS.
// The returned cleanup closes the form and the publisher.
func newForm(ctx context.Context, opts ...picker.FormOption) (*picker.Form, func(), error) {
	pcfg, err := config.LoadPicker()
	if err != nil {
		return nil, nil, err
	}
	publisher, err := newPublisher(natsURL())
	if err != nil {
		logger.Warn("events disabled", "err", err)
		publisher = &events.NoopPublisher{}
	}
	base := []picker.FormOption{
		picker.WithLogger(logger),
		picker.WithConfig(*pcfg),
		picker.WithPublisher(publisher),
	}
	form := picker.New(ctx, catalogClient, append(base, opts...)...)
	cleanup := func() {
		_ = form.Close()
		_ = publisher.Close()
	}
	return form, cleanup, nil
}
