// Package tierlog logs hierarchical ML sessions as one structured analytics
// event per session.
//
// Quick start:
//
//	r, err := tierlog.New(tierlog.WithGroup("ide", 1))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	scheme, err := tierlog.Declare(r, tierlog.Declaration[float64]{
//	    Event:      "completion.session",
//	    Levels:     levels,
//	    Prediction: tierlog.KindBool,
//	    Transform:  tierlog.Threshold(0.5),
//	})
//
//	l := scheme.NewLogger()
//	_ = l.BeforeStarted(tierlog.IntField("attempt").With(1))
//	_ = l.Finished(ctx, tree)
//
// Schemes are immutable and safe for concurrent use; create one per event at
// startup. A Logger belongs to a single session.
package tierlog
