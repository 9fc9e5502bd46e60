package tierlog

import (
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/crimson-sun/tierlog/internal/eventlog"
	"github.com/crimson-sun/tierlog/internal/httpclient"
	"github.com/crimson-sun/tierlog/internal/output"
	"github.com/crimson-sun/tierlog/internal/output/async"
	"github.com/crimson-sun/tierlog/internal/output/file"
	"github.com/crimson-sun/tierlog/internal/output/multi"
	"github.com/crimson-sun/tierlog/internal/output/stdout"
	"github.com/crimson-sun/tierlog/internal/output/webhook"
)

type options struct {
	group        string
	groupVersion int
	groupOpts    []eventlog.GroupOption

	verbosity string
	pretty    bool
	writer    io.Writer
	filePath  string
	webhook   string
	token     string
	sinks     []Output
	async     int
}

// Option configures a Registry.
type Option func(*options)

// WithGroup sets the analytics group id and version events are logged under.
// Default: "tierlog", 1.
func WithGroup(id string, version int) Option {
	return func(o *options) {
		o.group = id
		o.groupVersion = version
	}
}

// WithWriter writes events as JSON lines to w instead of stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithFile appends events as JSON lines to the file at path.
func WithFile(path string) Option {
	return func(o *options) { o.filePath = path }
}

// WithWebhook POSTs batches of events to url, with an optional Bearer token.
func WithWebhook(url, token string) Option {
	return func(o *options) {
		o.webhook = url
		o.token = token
	}
}

// WithSink adds a custom event sink.
func WithSink(out Output) Option {
	return func(o *options) { o.sinks = append(o.sinks, out) }
}

// WithVerbosity sets the payload verbosity of the built-in sinks:
// "minimal", "standard" or "full". Default: "standard".
func WithVerbosity(v string) Option {
	return func(o *options) { o.verbosity = v }
}

// WithPretty indents JSON written by the writer sink.
func WithPretty() Option {
	return func(o *options) { o.pretty = true }
}

// WithAsync drains events to the sinks on a background goroutine with a
// buffer of n events.
func WithAsync(n int) Option {
	return func(o *options) { o.async = n }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.groupOpts = append(o.groupOpts, eventlog.WithClock(now)) }
}

// WithIDs overrides the event id source.
func WithIDs(next func() string) Option {
	return func(o *options) { o.groupOpts = append(o.groupOpts, eventlog.WithIDs(next)) }
}

func defaultOptions() options {
	return options{
		group:        "tierlog",
		groupVersion: 1,
		verbosity:    "standard",
	}
}

// buildOutput assembles the configured sinks. With none configured, events
// go to stdout.
func (o options) buildOutput() (output.Output, error) {
	if o.group == "" || o.groupVersion < 1 {
		return nil, errors.Newf("tierlog: invalid group %q version %d", o.group, o.groupVersion)
	}
	verbosity := output.ParseVerbosity(o.verbosity)

	var sinks []output.Output
	if o.writer != nil {
		sinks = append(sinks, stdout.NewWriter(o.writer, verbosity, o.pretty))
	}
	if o.filePath != "" {
		f, err := file.New(o.filePath, verbosity)
		if err != nil {
			return nil, errors.Wrap(err, "tierlog")
		}
		sinks = append(sinks, f)
	}
	if o.webhook != "" {
		var clientOpts []httpclient.Option
		if o.token != "" {
			clientOpts = append(clientOpts, httpclient.WithToken(o.token))
		}
		sinks = append(sinks, webhook.New(o.webhook, webhook.WithVerbosity(verbosity), webhook.WithClientOptions(clientOpts...)))
	}
	sinks = append(sinks, o.sinks...)

	var out output.Output
	switch len(sinks) {
	case 0:
		out = stdout.NewWriter(os.Stdout, verbosity, o.pretty)
	case 1:
		out = sinks[0]
	default:
		out = multi.New(sinks...)
	}
	if o.async > 0 {
		out = async.New(out, async.WithBufferSize(o.async))
	}
	return out, nil
}
