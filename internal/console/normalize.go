// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package console

import "fmt"

// NormalizeSingle converts the payload of a single lookup into one result.
func NormalizeSingle(id string, p Payload) Result {
	var r Result
	if truthy(p, "success") && foundFlag(p) {
		r = found(RecordIDFields.ResolveOr(p, id), ProxyURLFields.ResolveOr(p, ""))
	} else {
		r = notFound(RecordIDFields.ResolveOr(p, id), MessageFields.ResolveOr(p, ReasonNotFound))
	}
	out := []Result{r}
	assignKeys(out)
	return out[0]
}

// NormalizeBatch converts a batch payload into one result per submitted id.
// Items are matched by record id, never by response order; an id-less item is
// only used for the position it occupies.
func NormalizeBatch(ids []string, p Payload) []Result {
	if !truthy(p, "success") {
		return NormalizeFailure(ids, &UpstreamError{Op: "batch lookup", Message: MessageFields.ResolveOr(p, ReasonQueryFailed)})
	}
	raw, ok := p["results"].([]any)
	if !ok {
		return NormalizeFailure(ids, &UpstreamError{Op: "batch lookup", Message: ReasonQueryFailed})
	}

	items := make([]Payload, len(raw))
	itemIDs := make([]string, len(raw))
	queue := make(map[string][]int)
	for i, v := range raw {
		switch obj := v.(type) {
		case map[string]any:
			items[i] = Payload(obj)
		case Payload:
			items[i] = obj
		default:
			items[i] = Payload{}
		}
		if rid, ok := RecordIDFields.Resolve(items[i]); ok {
			itemIDs[i] = rid
			queue[rid] = append(queue[rid], i)
		}
	}

	used := make([]bool, len(items))
	out := make([]Result, len(ids))
	for i, id := range ids {
		idx := -1
		if q := queue[id]; len(q) > 0 {
			idx, queue[id] = q[0], q[1:]
		} else if i < len(items) && !used[i] && itemIDs[i] == "" {
			idx = i
		}
		if idx < 0 {
			out[i] = notFound(id, ReasonNotFound)
			continue
		}
		used[idx] = true
		item := items[idx]
		rid := RecordIDFields.ResolveOr(item, id)
		if truthy(item, "found") {
			out[i] = found(rid, ProxyURLFields.ResolveOr(item, ""))
		} else {
			out[i] = notFound(rid, MessageFields.ResolveOr(item, ReasonNotFound))
		}
	}
	assignKeys(out)
	return out
}

// NormalizeFailure marks every submitted position as failed with the reason mapped from err.
func NormalizeFailure(ids []string, err error) []Result {
	reason := ReasonFor(err)
	out := make([]Result, len(ids))
	for i, id := range ids {
		out[i] = notFound(id, reason)
	}
	assignKeys(out)
	return out
}

func foundFlag(p Payload) bool {
	if _, ok := p["found"]; !ok {
		return true
	}
	return truthy(p, "found")
}

func found(recordID, proxyURL string) Result {
	return Result{RecordID: recordID, Found: true, ProxyURL: proxyURL}
}

func notFound(recordID, reason string) Result {
	return Result{RecordID: recordID, Error: reason}
}

// assignKeys gives every row a key unique within the set: the record id when
// free, otherwise a positional synthetic key.
func assignKeys(results []Result) {
	used := make(map[string]struct{}, len(results))
	for i := range results {
		key := results[i].RecordID
		if _, taken := used[key]; key == "" || taken {
			key = fmt.Sprintf("record-%d", i)
			for n := 1; ; n++ {
				if _, taken := used[key]; !taken {
					break
				}
				key = fmt.Sprintf("record-%d-%d", i, n)
			}
		}
		used[key] = struct{}{}
		results[i].Key = key
	}
}
