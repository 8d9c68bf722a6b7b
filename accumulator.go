package shadercompile

import "sort"

// ByteCodeBlock is one compiled dynamic combo's opaque payload (§3).
type ByteCodeBlock struct {
	DynamicComboID int64
	Payload        []byte
}

// StaticCombo accumulates the ByteCodeBlocks for one static-combo id until
// every one of its dynamic siblings has arrived, at which point the
// dispatcher's TryPackage seals it: Blocks is sorted by DynamicComboID,
// packed through the blockwise packer (§4.E.1), and Packed is set. Once
// Packed is non-nil, Blocks is considered sealed and is not mutated again.
type StaticCombo struct {
	StaticComboID int64
	Blocks        []ByteCodeBlock
	Packed        []byte
}

// sealed reports whether this static combo has already been packed.
func (s *StaticCombo) sealed() bool { return s.Packed != nil }

// add appends one dynamic combo's payload. Panics via assertInvariant in
// debug builds if the dynamic id was already recorded, which would mean the
// dispatcher handed out the same combo twice.
func (s *StaticCombo) add(block ByteCodeBlock) {
	for _, b := range s.Blocks {
		assertInvariant(b.DynamicComboID != block.DynamicComboID, "duplicate dynamic combo id in static combo")
	}
	s.Blocks = append(s.Blocks, block)
}

// seal sorts Blocks by DynamicComboID ascending and packs them via pack,
// storing the result in Packed. Called at most once per StaticCombo.
func (s *StaticCombo) seal(pack func([]ByteCodeBlock) []byte) {
	sort.Slice(s.Blocks, func(i, j int) bool {
		return s.Blocks[i].DynamicComboID < s.Blocks[j].DynamicComboID
	})
	s.Packed = pack(s.Blocks)
}

// CompilerMessage is one deduplicated diagnostic line, grouped as a warning
// or error in the per-shader message bag (§3, §7).
type CompilerMessage struct {
	Text             string
	FirstCommandText string
	RepeatCount      int
}

// messageBag deduplicates compiler diagnostic lines by exact text, per
// §4.D step 5 / §7: the first occurrence records the offending command
// string; later identical text only increments RepeatCount.
type messageBag struct {
	order  []string
	byText map[string]*CompilerMessage
}

func newMessageBag() *messageBag {
	return &messageBag{byText: make(map[string]*CompilerMessage)}
}

// add records one diagnostic line text, with commandText identifying the
// combo that first produced it.
func (b *messageBag) add(text, commandText string) {
	if m, ok := b.byText[text]; ok {
		m.RepeatCount++
		return
	}
	m := &CompilerMessage{Text: text, FirstCommandText: commandText, RepeatCount: 1}
	b.byText[text] = m
	b.order = append(b.order, text)
}

// messages returns the recorded messages in first-seen order.
func (b *messageBag) messages() []CompilerMessage {
	out := make([]CompilerMessage, 0, len(b.order))
	for _, text := range b.order {
		out = append(out, *b.byText[text])
	}
	return out
}

// ShaderAccumulator is one shader's in-flight build state (§3): its
// static-combo map, error flag, and separated warning/error message bags.
type ShaderAccumulator struct {
	Name     string
	statics  map[int64]*StaticCombo
	HadError bool
	warnings *messageBag
	errors   *messageBag

	// vcsWritten makes WriteVCSFile idempotent (§3: repeated
	// WriteShaderFiles(name) performs at most one real write).
	vcsWritten bool
}

func newShaderAccumulator(name string) *ShaderAccumulator {
	return &ShaderAccumulator{
		Name:     name,
		statics:  make(map[int64]*StaticCombo),
		warnings: newMessageBag(),
		errors:   newMessageBag(),
	}
}

// staticCombo returns the StaticCombo for id, creating it lazily on first
// dynamic-combo arrival (§3 Lifecycles).
func (a *ShaderAccumulator) staticCombo(id int64) *StaticCombo {
	sc, ok := a.statics[id]
	if !ok {
		sc = &StaticCombo{StaticComboID: id}
		a.statics[id] = sc
	}
	return sc
}

// recordListing splits a compiler listing into lines and files each into
// the warning or error bag depending on whether it contains "warning X"
// (§4.D step 5).
func (a *ShaderAccumulator) recordListing(listing, commandText string) {
	start := 0
	for i := 0; i <= len(listing); i++ {
		if i == len(listing) || listing[i] == '\n' {
			line := listing[start:i]
			start = i + 1
			if line == "" {
				continue
			}
			if containsWarningMarker(line) {
				a.warnings.add(line, commandText)
			} else {
				a.errors.add(line, commandText)
			}
		}
	}
}

// containsWarningMarker reports whether line contains the literal substring
// "warning X", the marker the design uses to classify a listing line as a
// warning rather than an error.
func containsWarningMarker(line string) bool {
	const marker = "warning X"
	if len(line) < len(marker) {
		return false
	}
	for i := 0; i+len(marker) <= len(line); i++ {
		if line[i:i+len(marker)] == marker {
			return true
		}
	}
	return false
}

// Warnings returns the deduplicated warning messages in first-seen order.
func (a *ShaderAccumulator) Warnings() []CompilerMessage { return a.warnings.messages() }

// Errors returns the deduplicated error messages in first-seen order.
func (a *ShaderAccumulator) Errors() []CompilerMessage { return a.errors.messages() }
