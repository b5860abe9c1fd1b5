//go:build integration

package server

import (
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod"
)

// Drives the embedded page in a headless browser. Run with:
//
//	go test -tags integration ./internal/server/
func TestPage_InBrowser(t *testing.T) {
	srv := startServer(t, Config{Calculation: 200 * time.Millisecond})

	browser := rod.New().Timeout(60 * time.Second).MustConnect()
	defer browser.MustClose()

	page := browser.MustPage(srv.URL())
	page.MustWaitLoad()
	waitForCondition(t, 10*time.Second, func() bool { return srv.Peers() == 1 })

	// Grid drawn: the canvas is not blank.
	painted := page.MustEval(`() => {
		const c = document.querySelector("#main_canvas");
		const px = c.getContext("2d").getImageData(1, 1, 1, 1).data;
		return px[3] > 0;
	}`).Bool()
	if !painted {
		t.Error("canvas border was not painted")
	}

	// Broadcast from another client lands in the info area.
	other := dialPeer(t, srv)
	waitForCondition(t, 5*time.Second, func() bool { return srv.Peers() == 2 })
	other.send(t, "hello page")
	page.Timeout(5 * time.Second).MustWait(`() => document.querySelector("#infoarea").value.includes("hello page\r\n")`)

	page.MustElement("#startcalculation").MustClick()
	page.Timeout(5 * time.Second).MustWait(`() => document.querySelector("#infoarea").value.includes("calculation done at ")`)

	text := page.MustElement("#infoarea").MustProperty("value").String()
	if strings.Count(text, "\r\n") < 2 {
		t.Errorf("info area lines not CRLF terminated: %q", text)
	}
}
