package dedup

import "testing"

func TestInsertFirstOccurrenceIsCanonical(t *testing.T) {
	tbl := New()
	id, alias := tbl.Insert(3, []byte("payload"))
	if alias {
		t.Error("first insert should not be an alias")
	}
	if id != 3 {
		t.Errorf("canonical id = %d, want 3", id)
	}
}

func TestInsertDuplicateResolvesToCanonical(t *testing.T) {
	tbl := New()
	tbl.Insert(3, []byte("payload"))
	canonical, alias := tbl.Insert(9, []byte("payload"))
	if !alias {
		t.Error("second byte-identical insert should be an alias")
	}
	if canonical != 3 {
		t.Errorf("canonical id = %d, want 3", canonical)
	}
}

func TestInsertDistinctBlobsAreNotAliased(t *testing.T) {
	tbl := New()
	tbl.Insert(1, []byte("alpha"))
	_, alias := tbl.Insert(2, []byte("beta"))
	if alias {
		t.Error("distinct blobs should not alias")
	}
}

func TestInsertSameLengthDifferentBytesNotAliased(t *testing.T) {
	tbl := New()
	tbl.Insert(1, []byte("aaaa"))
	_, alias := tbl.Insert(2, []byte("bbbb"))
	if alias {
		t.Error("same-length but byte-different blobs should not alias")
	}
}
