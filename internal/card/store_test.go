package card

import (
	"fmt"
	"sync"
	"testing"
)

func TestGetOrCreateIdempotent(t *testing.T) {
	st := NewStore()

	first := st.GetOrCreate("gato", "animal")
	if first.Word != "gato" || first.Hint != "animal" {
		t.Fatalf("first = %+v", first)
	}
	if first.Status() != StatusPending {
		t.Errorf("Status = %v, want Pending", first.Status())
	}

	// A second occurrence with a different hint aliases the first entry.
	second := st.GetOrCreate("gato", "other hint")
	if second.Hint != "animal" {
		t.Errorf("Hint = %q, want original %q", second.Hint, "animal")
	}
}

func TestUpdateMergeIdempotent(t *testing.T) {
	st := NewStore()
	st.GetOrCreate("gato", "animal")

	p := TextPatch("cat", "El gato duerme.", "The cat sleeps.", "a sleeping cat")
	after1 := st.Update("gato", p)
	after2 := st.Update("gato", p)

	if after1 != after2 {
		t.Errorf("second identical merge changed state:\n%+v\n%+v", after1, after2)
	}
	if after2.Definition != "cat" || after2.Scenario != "a sleeping cat" {
		t.Errorf("merged state = %+v", after2)
	}
	if after2.Status() != StatusTextReady {
		t.Errorf("Status = %v, want TextReady", after2.Status())
	}
}

func TestImagePathAndErrorExclusive(t *testing.T) {
	st := NewStore()
	st.GetOrCreate("gato", "None")

	check := func(s State) {
		t.Helper()
		if s.ImagePath != "" && s.ImageError != "" {
			t.Fatalf("both image path and error set: %+v", s)
		}
	}

	check(st.Update("gato", Patch{ImageError: String("content_filtered")}))
	check(st.Update("gato", Patch{ImagePath: String("/tmp/gato.png")}))
	check(st.Update("gato", Patch{ImageError: String("transport")}))
	check(st.Update("gato", Patch{ImagePath: String("/tmp/gato2.png")}))

	// Both in one patch resolves to the error side.
	s := st.Update("gato", Patch{ImagePath: String("/tmp/x.png"), ImageError: String("boom")})
	check(s)
	if s.ImageError != "boom" {
		t.Errorf("ImageError = %q, want boom", s.ImageError)
	}
	if s.Status() != StatusError {
		t.Errorf("Status = %v, want Error", s.Status())
	}
}

func TestImageSuccessClearsError(t *testing.T) {
	st := NewStore()
	st.Update("gato", Patch{ImageError: String("content_filtered")})

	s := st.Update("gato", Patch{ImagePath: String("/tmp/gato.png")})
	if s.ImageError != "" {
		t.Errorf("ImageError = %q, want cleared", s.ImageError)
	}
	if s.Status() != StatusImageReady {
		t.Errorf("Status = %v, want ImageReady", s.Status())
	}
}

func TestConsumeForceTextUpdate(t *testing.T) {
	st := NewStore()
	st.GetOrCreate("gato", "None")

	if st.ConsumeForceTextUpdate("gato") {
		t.Error("flag should start cleared")
	}

	st.Update("gato", Patch{ForceTextUpdate: true})
	if !st.ConsumeForceTextUpdate("gato") {
		t.Error("flag should be observed once")
	}
	if st.ConsumeForceTextUpdate("gato") {
		t.Error("flag must be cleared after one observation")
	}

	if st.ConsumeForceTextUpdate("unknown") {
		t.Error("unknown word must report false")
	}
}

func TestStoreConcurrentDistinctWords(t *testing.T) {
	st := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		word := fmt.Sprintf("word%d", i)
		st.GetOrCreate(word, "None")
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Update(word, TextPatch("def", "sent", "trans", "scene"))
			st.Update(word, Patch{ImagePath: String("/tmp/" + word + ".png")})
		}()
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		word := fmt.Sprintf("word%d", i)
		s, ok := st.Get(word)
		if !ok {
			t.Fatalf("missing %s", word)
		}
		if s.Status() != StatusImageReady {
			t.Errorf("%s status = %v, want ImageReady", word, s.Status())
		}
	}
}
