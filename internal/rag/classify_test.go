package rag

import (
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantKind QueryKind
		wantName []string
	}{
		{name: "english greeting", query: "Hello!", wantKind: KindGreeting},
		{name: "greeting with filler", query: "hi there", wantKind: KindGreeting},
		{name: "russian greeting", query: "Добрый день", wantKind: KindGreeting},
		{name: "greeting inside question is generic", query: "hello, where is the office?", wantKind: KindGeneric},
		{name: "who is", query: "Who is Jane Doe?", wantKind: KindPersonEntity, wantName: []string{"jane", "doe"}},
		{name: "tell me about", query: "tell me about Ivan Petrov", wantKind: KindPersonEntity, wantName: []string{"ivan", "petrov"}},
		{name: "russian entity", query: "Кто такой Иван Петров?", wantKind: KindPersonEntity, wantName: []string{"иван", "петров"}},
		{name: "how much", query: "How much does Ivan lift?", wantKind: KindNumericFact},
		{name: "russian numeric", query: "Сколько стоит абонемент?", wantKind: KindNumericFact},
		{name: "unit marker", query: "is 20 kg enough for a beginner", wantKind: KindNumericFact},
		{name: "generic", query: "What is the refund policy?", wantKind: KindGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.query)
			if got.Kind != tt.wantKind {
				t.Errorf("Classify(%q).Kind = %v, want %v", tt.query, got.Kind, tt.wantKind)
			}
			if !reflect.DeepEqual(got.Name, tt.wantName) {
				t.Errorf("Classify(%q).Name = %v, want %v", tt.query, got.Name, tt.wantName)
			}
		})
	}
}

func TestStrategiesCoverEveryKind(t *testing.T) {
	for _, kind := range []QueryKind{KindGeneric, KindGreeting, KindNumericFact, KindPersonEntity} {
		s, ok := strategies[kind]
		if !ok || s.compose == nil {
			t.Errorf("no strategy for %v", kind)
		}
		if s.retrieval == (kind == KindGreeting) {
			t.Errorf("strategy for %v has retrieval = %v", kind, s.retrieval)
		}
	}
}
