//go:build linux

// Package notify shows one-off desktop notices.
package notify

import (
	"github.com/rymdport/portal/notification"

	"chord/log"
)

const hotkeysNoticeID = 1

// HotkeysDisabled tells the user, outside the terminal, that global
// hotkeys are off and why.
func HotkeysDisabled(reason string) error {
	err := notification.Add(hotkeysNoticeID, notification.Content{
		Title:    "Global hotkeys are disabled",
		Body:     reason,
		Priority: notification.High,
	})
	if err != nil {
		log.Warnf("desktop notification failed: %v", err)
	}
	return err
}
