package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalizeDocument(t *testing.T) {
	oid := primitive.NewObjectID()
	when := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	raw := bson.M{
		"_id":    oid,
		"title":  "Netflix",
		"amount": int32(799),
		"count":  int64(3),
		"rate":   0.5,
		"date":   primitive.NewDateTimeFromTime(when),
		"note":   nil,
	}

	doc := normalizeDocument(raw)

	if doc["title"] != "Netflix" {
		t.Errorf("title = %v", doc["title"])
	}
	if doc["amount"] != 799.0 || doc["count"] != 3.0 {
		t.Errorf("integer fields not widened: amount=%v count=%v", doc["amount"], doc["count"])
	}
	if doc["rate"] != 0.5 {
		t.Errorf("rate = %v", doc["rate"])
	}
	if doc["date"] != "2025-06-15T10:00:00Z" {
		t.Errorf("date = %v", doc["date"])
	}
	if _, present := doc["note"]; present {
		t.Error("nil values should be omitted")
	}
	if doc["id"] != oid.Hex() {
		t.Errorf("id should fall back to _id hex, got %v", doc["id"])
	}
}

func TestNormalizeDocumentKeepsExplicitID(t *testing.T) {
	raw := bson.M{
		"_id": primitive.NewObjectID(),
		"id":  "t1",
	}
	doc := normalizeDocument(raw)
	if doc["id"] != "t1" {
		t.Errorf("explicit id should win, got %v", doc["id"])
	}
}

func TestNormalizeDocumentDecimal128(t *testing.T) {
	dec, err := primitive.ParseDecimal128("1499.50")
	if err != nil {
		t.Fatalf("ParseDecimal128: %v", err)
	}
	doc := normalizeDocument(bson.M{"amount": dec})
	if doc["amount"] != 1499.50 {
		t.Errorf("amount = %v, want 1499.5", doc["amount"])
	}
}
