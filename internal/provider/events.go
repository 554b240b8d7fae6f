package provider

import (
	"sort"
	"strings"

	"github.com/google/go-github/v61/github"

	"github.com/devtrack/devtrack-server/internal/model"
)

// eventRule maps one GitHub event type onto an ActivityEvent.
type eventRule struct {
	kind  model.EventType
	apply func(ev *model.ActivityEvent, payload any)
}

// eventTable is the fixed dispatch table. Types missing from it become
// EventOther with the raw type as the message.
var eventTable = map[string]eventRule{
	"PushEvent":        {model.EventPush, applyPush},
	"PullRequestEvent": {model.EventPullRequest, applyPullRequest},
	"IssuesEvent":      {model.EventIssue, applyIssue},
	"CreateEvent":      {model.EventCreate, applyCreate},
	"ReleaseEvent":     {model.EventRelease, applyRelease},
}

// normalizeEvents converts raw events, newest first, with IDs assigned in
// that order.
func normalizeEvents(raw []*github.Event) []model.ActivityEvent {
	out := make([]model.ActivityEvent, 0, len(raw))
	for _, e := range raw {
		if e == nil {
			continue
		}
		out = append(out, normalizeEvent(e))
	}
	sortEvents(out)
	return out
}

func normalizeEvent(e *github.Event) model.ActivityEvent {
	ev := model.ActivityEvent{
		Type:    model.EventOther,
		RawType: e.GetType(),
		Repo:    e.GetRepo().GetName(),
		Message: e.GetType(),
		Time:    e.GetCreatedAt().Time.UTC(),
	}

	rule, ok := eventTable[e.GetType()]
	if !ok {
		return ev
	}
	ev.Type = rule.kind

	// A payload that fails to parse still gets the type's default fields.
	payload, err := e.ParsePayload()
	if err != nil {
		payload = nil
	}
	rule.apply(&ev, payload)
	return ev
}

func applyPush(ev *model.ActivityEvent, payload any) {
	p, _ := payload.(*github.PushEvent)

	ev.Message = "Push commits"
	commits := p.GetSize()
	if p != nil {
		if commits == 0 {
			commits = len(p.Commits)
		}
		if len(p.Commits) > 0 {
			if msg := firstLine(p.Commits[0].GetMessage()); msg != "" {
				ev.Message = msg
			}
		}
	}
	// A push always carries at least one commit; payloads trimmed by GitHub
	// report neither size nor commits.
	if commits <= 0 {
		commits = 1
	}
	ev.Commits = intPtr(commits)
}

func applyPullRequest(ev *model.ActivityEvent, payload any) {
	p, _ := payload.(*github.PullRequestEvent)

	ev.Message = "Pull Request"
	if p == nil {
		return
	}
	pr := p.GetPullRequest()
	if title := pr.GetTitle(); title != "" {
		ev.Message = title
	}
	ev.Action = p.GetAction()
	ev.Merged = pr.GetMerged()
	if n := p.GetNumber(); n != 0 {
		ev.Number = intPtr(n)
	} else if n := pr.GetNumber(); n != 0 {
		ev.Number = intPtr(n)
	}
}

func applyIssue(ev *model.ActivityEvent, payload any) {
	p, _ := payload.(*github.IssuesEvent)

	ev.Message = "Issue"
	if p == nil {
		return
	}
	if title := p.GetIssue().GetTitle(); title != "" {
		ev.Message = title
	}
	ev.Action = p.GetAction()
	if n := p.GetIssue().GetNumber(); n != 0 {
		ev.Number = intPtr(n)
	}
}

func applyCreate(ev *model.ActivityEvent, payload any) {
	p, _ := payload.(*github.CreateEvent)

	ev.RefType = p.GetRefType()
	ev.Message = strings.TrimSpace("Created " + ev.RefType + ": " + p.GetRef())
}

func applyRelease(ev *model.ActivityEvent, payload any) {
	p, _ := payload.(*github.ReleaseEvent)

	ev.Tag = p.GetRelease().GetTagName()
	ev.Message = strings.TrimSpace("Released " + ev.Tag)
}

// sortEvents orders newest first and renumbers IDs.
func sortEvents(events []model.ActivityEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.After(events[j].Time)
	})
	for i := range events {
		events[i].ID = i
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func intPtr(v int) *int { return &v }
