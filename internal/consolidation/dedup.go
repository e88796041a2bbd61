package consolidation

import (
	"sort"

	"github.com/agnivade/levenshtein"

	"github.com/aicfd/aicfd/internal/model"
)

// dedupedMessage is a Message plus the set of platforms that produced an
// identical (by contentHash) copy of it.
type dedupedMessage struct {
	message   model.Message
	platforms map[string]struct{}
}

// dedupeByContentHash merges Messages with identical contentHash, keeping
// the earliest timestamp and unioning the contributing platforms.
func dedupeByContentHash(messages []model.Message) []dedupedMessage {
	byHash := make(map[string]*dedupedMessage)
	var order []string

	for _, m := range messages {
		hash := m.Metadata.ContentHash
		existing, ok := byHash[hash]
		if !ok {
			existing = &dedupedMessage{message: m, platforms: map[string]struct{}{}}
			byHash[hash] = existing
			order = append(order, hash)
		}
		existing.platforms[m.Metadata.Source] = struct{}{}
		if m.Timestamp.Before(existing.message.Timestamp) {
			existing.message = m
		}
	}

	out := make([]dedupedMessage, 0, len(order))
	for _, hash := range order {
		out = append(out, *byHash[hash])
	}
	return out
}

// nearDuplicateThreshold is the maximum Levenshtein distance, as a fraction
// of the longer string's length, for two messages to be considered near
// duplicates worth merging (e.g. the same exchange captured with minor
// whitespace/formatting differences by two platforms).
const nearDuplicateThreshold = 0.05

// mergeNearDuplicates folds messages whose content is nearly identical
// (same role, close Levenshtein distance) into one another, unioning their
// platform sets. This catches cross-platform captures that missed an exact
// contentHash match due to incidental formatting differences.
func mergeNearDuplicates(messages []dedupedMessage) []dedupedMessage {
	merged := make([]bool, len(messages))
	var out []dedupedMessage

	for i := range messages {
		if merged[i] {
			continue
		}
		base := messages[i]
		for j := i + 1; j < len(messages); j++ {
			if merged[j] {
				continue
			}
			if base.message.Role != messages[j].message.Role {
				continue
			}
			if isNearDuplicate(base.message.Content, messages[j].message.Content) {
				for p := range messages[j].platforms {
					base.platforms[p] = struct{}{}
				}
				if messages[j].message.Timestamp.Before(base.message.Timestamp) {
					base.message = messages[j].message
				}
				merged[j] = true
			}
		}
		out = append(out, base)
	}

	return out
}

func isNearDuplicate(a, b string) bool {
	if a == b {
		return true
	}
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return true
	}
	dist := levenshtein.ComputeDistance(a, b)
	return float64(dist)/float64(longer) <= nearDuplicateThreshold
}

// groupByConversation groups deduped messages by conversationId, each group
// sorted by timestamp ascending.
func groupByConversation(messages []dedupedMessage) map[string][]dedupedMessage {
	groups := make(map[string][]dedupedMessage)
	for _, m := range messages {
		groups[m.message.ConversationID] = append(groups[m.message.ConversationID], m)
	}
	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			return group[i].message.Timestamp.Before(group[j].message.Timestamp)
		})
	}
	return groups
}

// platformSet returns the sorted union of every message's contributing
// platforms in a group.
func platformSet(group []dedupedMessage) []string {
	set := map[string]struct{}{}
	for _, m := range group {
		for p := range m.platforms {
			set[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
