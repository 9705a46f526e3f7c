package client

import (
	"github.com/gen2brain/beeep"
)

// maxDesktopBody truncates notification bodies; OS notification centers
// clip long text anyway.
const maxDesktopBody = 100

// BeeepNotifier sends desktop notifications through the OS notification service
type BeeepNotifier struct {
	// IconPath is optional
	IconPath string
}

// NewBeeepNotifier creates a desktop notifier
func NewBeeepNotifier(iconPath string) *BeeepNotifier {
	return &BeeepNotifier{IconPath: iconPath}
}

// Notify sends a desktop notification (best-effort)
func (n *BeeepNotifier) Notify(title, body string) error {
	return beeep.Notify(title, truncateBody(body), n.IconPath)
}

func truncateBody(body string) string {
	runes := []rune(body)
	if len(runes) > maxDesktopBody {
		return string(runes[:maxDesktopBody-3]) + "..."
	}
	return body
}
