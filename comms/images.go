package comms

import (
	"encoding/base64"
	"os"
	"regexp"
	"strings"
)

// imageRef matches markdown image links and bare paths with an image
// extension inside message content.
var imageRef = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)\)|(\S+\.(?:png|jpe?g|gif|webp|bmp))`)

// AttachImages scans a user message's content for referenced image files,
// base64-encodes the ones that can be read, and stores them under the
// MetaImages metadata key. Non-user messages and unreadable references are
// left untouched; the scan never fails.
func AttachImages(msg *Message) {
	if msg.Role != RoleUser {
		return
	}
	var images []string
	for _, m := range imageRef.FindAllStringSubmatch(msg.Content, -1) {
		path := m[1]
		if path == "" {
			path = m[2]
		}
		if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		images = append(images, base64.StdEncoding.EncodeToString(data))
	}
	if len(images) > 0 {
		msg.AddMetadata(MetaImages, images)
	}
}
