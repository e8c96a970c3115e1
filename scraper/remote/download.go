package remote

import (
	"context"
	"errors"
	"time"

	"github.com/chromedp/cdproto/browser"
)

// downloadGrace is how long to wait for a download to start after a
// navigation that produced no page.
const downloadGrace = 3 * time.Second

var errNoDownload = errors.New("no download started")

// downloadWatcher tracks the single download a fetch tab may trigger.
type downloadWatcher struct {
	began chan string
	done  chan error
}

func newDownloadWatcher() *downloadWatcher {
	return &downloadWatcher{
		began: make(chan string, 1),
		done:  make(chan error, 1),
	}
}

// handle is registered with chromedp.ListenTarget.
func (w *downloadWatcher) handle(ev interface{}) {
	switch ev := ev.(type) {
	case *browser.EventDownloadWillBegin:
		select {
		case w.began <- ev.GUID:
		default:
		}
	case *browser.EventDownloadProgress:
		var result error
		switch ev.State {
		case browser.DownloadProgressStateCompleted:
		case browser.DownloadProgressStateCanceled:
			result = errors.New("download canceled")
		default:
			return
		}
		select {
		case w.done <- result:
		default:
		}
	}
}

// wait returns the GUID (and on-disk file name) of the completed download.
// errNoDownload means none began within grace.
func (w *downloadWatcher) wait(ctx context.Context, grace time.Duration) (string, error) {
	var guid string
	select {
	case guid = <-w.began:
	case <-time.After(grace):
		return "", errNoDownload
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case err := <-w.done:
		if err != nil {
			return "", err
		}
		return guid, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
