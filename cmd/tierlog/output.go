package main

import (
	"io"

	"github.com/cockroachdb/errors"

	"github.com/crimson-sun/tierlog/internal/config"
	"github.com/crimson-sun/tierlog/internal/httpclient"
	"github.com/crimson-sun/tierlog/internal/output"
	"github.com/crimson-sun/tierlog/internal/output/async"
	"github.com/crimson-sun/tierlog/internal/output/file"
	"github.com/crimson-sun/tierlog/internal/output/multi"
	"github.com/crimson-sun/tierlog/internal/output/stdout"
	"github.com/crimson-sun/tierlog/internal/output/webhook"
)

// newOutput builds the event sink described by cfg. Stdout output goes to w.
func newOutput(cfg config.OutputConfig, w io.Writer) (output.Output, error) {
	out, err := newSink(cfg, w)
	if err != nil {
		return nil, err
	}
	if cfg.Async {
		out = async.New(out, async.WithBufferSize(cfg.BufferSize))
	}
	return out, nil
}

func newSink(cfg config.OutputConfig, w io.Writer) (output.Output, error) {
	verbosity := output.ParseVerbosity(cfg.Verbosity)

	var opts []file.Option
	if cfg.MaxSize > 0 {
		opts = append(opts, file.WithMaxSize(cfg.MaxSize))
	}

	switch cfg.Format {
	case "stdout":
		return stdout.NewWriter(w, verbosity, cfg.Pretty), nil
	case "file":
		return file.New(cfg.Path, verbosity, opts...)
	case "both":
		f, err := file.New(cfg.Path, verbosity, opts...)
		if err != nil {
			return nil, err
		}
		return multi.New(stdout.NewWriter(w, verbosity, cfg.Pretty), f), nil
	case "webhook":
		var clientOpts []httpclient.Option
		if cfg.Token != "" {
			clientOpts = append(clientOpts, httpclient.WithToken(cfg.Token))
		}
		return webhook.New(cfg.URL, webhook.WithVerbosity(verbosity), webhook.WithClientOptions(clientOpts...)), nil
	default:
		return nil, errors.Newf("unknown output format %q", cfg.Format)
	}
}
