package warmup

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/k3a/html2text"
)

// TagMarker prefixes every warmup subject so inbound scans can recognize the
// pool's own traffic.
const TagMarker = "WARMUP-"

// tagPattern is the strict form a subject must match before an unrecognized
// inbound message is recorded in the ledger.
var tagPattern = regexp.MustCompile(`WARMUP-([0-9a-f]+):`)

// NewTagID returns a short opaque id embedded in a warmup subject.
func NewTagID() string {
	return uuid.NewString()[:8]
}

// Content is a generated subject/body pair.
type Content struct {
	Subject  string
	BodyHTML string
	BodyText string
}

var subjectTemplates = []string{
	"Quick question about your latest project",
	"Touched base with the team",
	"Following up on our conversation",
	"Great insights from yesterday's call",
	"Sharing some thoughts on the proposal",
	"Article you might find interesting",
	"Let's connect sometime this week",
	"Quick update on the project status",
	"Wanted to share some good news",
	"Resources for our discussion",
}

var bodyTemplates = []string{
	"<p>Hi there,</p><p>Just wanted to share some quick thoughts on the project we discussed last week. I think we're making great progress, and the team is really coming together well.</p><p>Let me know if you have any questions or if there's anything else you'd like to discuss!</p><p>Best regards,<br>[Your Name]</p>",
	"<p>Hello,</p><p>I came across this interesting article that I thought might be relevant to our current project. It has some great insights that could be valuable for our approach.</p><p>Looking forward to catching up soon!</p><p>Warm regards,<br>[Your Name]</p>",
	"<p>Hi,</p><p>I wanted to follow up on our conversation from earlier this week. I've had some time to think about the points you raised, and I believe we're on the right track.</p><p>Let's schedule a quick call if you'd like to discuss further.</p><p>Thanks,<br>[Your Name]</p>",
	"<p>Hello there,</p><p>Just checking in to see how you're doing with the latest updates. Our team has been making steady progress, and I'm excited about where we're heading.</p><p>Feel free to reach out if you need any clarification or support!</p><p>All the best,<br>[Your Name]</p>",
	"<p>Hi,</p><p>I hope this email finds you well. I wanted to share some positive feedback we received on the recent changes. The client was particularly impressed with the attention to detail.</p><p>Great job to everyone involved!</p><p>Cheers,<br>[Your Name]</p>",
}

var replyTemplates = []string{
	"<p>Thanks for reaching out!</p><p>I appreciate you sharing this information. It's definitely valuable for our ongoing discussions.</p><p>Let's keep in touch on this topic.</p><p>Best regards,<br>[Your Name]</p>",
	"<p>Thank you for your email.</p><p>This is really helpful information. I'll review it in detail and get back to you if I have any questions.</p><p>Have a great day!</p><p>Regards,<br>[Your Name]</p>",
	"<p>I appreciate you sending this over!</p><p>The information looks good, and I think we're aligned on the next steps. Let me know if you need anything else from my end.</p><p>Thanks again,<br>[Your Name]</p>",
}

// GenerateContent produces a synthetic warmup email. New messages carry a
// tagged subject drawn from the template pools; replies answer replySubject
// with a generic acknowledgement. When isReply is set but the original
// subject or body is missing, generation falls back to a new message instead
// of failing.
func GenerateContent(rng Rand, tagID string, isReply bool, replySubject, replyBody string) Content {
	if isReply && replySubject != "" && replyBody != "" {
		bodyHTML := replyTemplates[rng.Intn(len(replyTemplates))]
		return Content{
			Subject:  "Re: " + replySubject,
			BodyHTML: bodyHTML,
			BodyText: html2text.HTML2Text(bodyHTML),
		}
	}

	subject := fmt.Sprintf("%s%s: %s", TagMarker, tagID, subjectTemplates[rng.Intn(len(subjectTemplates))])
	bodyHTML := bodyTemplates[rng.Intn(len(bodyTemplates))]
	return Content{
		Subject:  subject,
		BodyHTML: bodyHTML,
		BodyText: html2text.HTML2Text(bodyHTML),
	}
}

// IsWarmupSubject reports whether a subject carries the strict warmup tag.
func IsWarmupSubject(subject string) bool {
	return tagPattern.MatchString(subject)
}
