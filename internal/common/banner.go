package common

import (
	"github.com/ternarybob/banner"
)

// PrintBanner displays the startup banner with the resolved version.
func PrintBanner() {
	banner.PrintSimple("Meld", LoadVersionFromFile())
}
