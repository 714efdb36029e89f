package bridge

import "fmt"

// BuildReply turns an accepted match into the immutable reply bundle for a
// question. A button click collapses to a single text item carrying the
// click payload. A message expands, in order, to its text, its caption, and
// one item per attachment; attachments the bridge cannot deliver become a
// text item naming the limitation rather than stalling the wait.
func BuildReply(q Question, m *Match) *Reply {
	r := &Reply{QuestionID: q.ID}

	if m.Click != nil {
		r.Items = append(r.Items, ContentItem{Text: m.Click.Data})
		return r
	}

	msg := m.Message
	if msg.Text != "" {
		r.Items = append(r.Items, ContentItem{Text: msg.Text})
	}
	if msg.Caption != "" {
		r.Items = append(r.Items, ContentItem{Text: msg.Caption})
	}
	for i := range msg.Media {
		ref := msg.Media[i]
		if !ref.Kind.Supported() {
			r.Items = append(r.Items, ContentItem{
				Text: fmt.Sprintf("[the user attached a %s, which cannot be returned through this tool]", ref.Kind),
			})
			continue
		}
		r.Items = append(r.Items, ContentItem{Media: &ref})
	}
	return r
}
