package browser

import (
	"math/rand/v2"
	"time"

	"github.com/playwright-community/playwright-go"
)

// RandomDelay waits for a random duration between min and max milliseconds.
func RandomDelay(min, max int) {
	if max <= min {
		time.Sleep(time.Duration(min) * time.Millisecond)
		return
	}
	time.Sleep(time.Duration(rand.IntN(max-min+1)+min) * time.Millisecond)
}

// HumanScroll scrolls down in steps to trigger lazy-loaded feeds, then nudges
// back up.
func HumanScroll(page playwright.Page) error {
	for range 5 {
		if _, err := page.Evaluate("window.scrollBy(0, window.innerHeight / 2)"); err != nil {
			return err
		}
		RandomDelay(500, 1500)
	}
	_, err := page.Evaluate("window.scrollBy(0, -200)")
	return err
}

// MouseJiggle moves the pointer around the viewport a few times.
func MouseJiggle(page playwright.Page) error {
	vp := page.ViewportSize()
	if vp == nil || vp.Width == 0 || vp.Height == 0 {
		return nil
	}
	for range 3 {
		x, y := rand.IntN(vp.Width), rand.IntN(vp.Height)
		if err := page.Mouse().Move(float64(x), float64(y)); err != nil {
			return err
		}
		RandomDelay(100, 300)
	}
	return nil
}
