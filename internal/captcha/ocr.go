package captcha

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandClassifier is an offline Classifier that runs a local recogniser
// such as tesseract. The image is written to its stdin and the first
// non-empty line of stdout is the answer.
type CommandClassifier struct {
	Path string
	Args []string
}

// ParseCommand splits a command line on whitespace, e.g.
// "tesseract stdin stdout --psm 7"
func ParseCommand(line string) (*CommandClassifier, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty ocr command")
	}
	return &CommandClassifier{Path: fields[0], Args: fields[1:]}, nil
}

func (c *CommandClassifier) Classify(ctx context.Context, image []byte) (string, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ocr command %s failed: %w: %s", c.Path, err, strings.TrimSpace(stderr.String()))
	}

	for _, line := range strings.Split(stdout.String(), "\n") {
		if text := strings.TrimSpace(line); text != "" {
			return text, nil
		}
	}
	return "", nil
}
