package model

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ref is a reference to a document of type T. It is stored as the referenced
// ObjectID. When the reference has been populated the stored value is the
// embedded (usually partial) document, which is decoded into Doc.
type Ref[T any] struct {
	ID  primitive.ObjectID
	Doc *T
}

// RefTo returns an unpopulated reference.
func RefTo[T any](id primitive.ObjectID) *Ref[T] {
	return &Ref[T]{ID: id}
}

// Populated reports whether the referenced document was resolved.
func (r Ref[T]) Populated() bool { return r.Doc != nil }

func (r Ref[T]) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(r.ID)
}

func (r *Ref[T]) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.ObjectID:
		*r = Ref[T]{ID: rv.ObjectID()}
	case bsontype.EmbeddedDocument:
		var doc T
		if err := rv.Unmarshal(&doc); err != nil {
			return fmt.Errorf("decode referenced document: %w", err)
		}
		id, _ := rv.Document().Lookup("_id").ObjectIDOK()
		*r = Ref[T]{ID: id, Doc: &doc}
	case bsontype.Null, bsontype.Undefined:
		*r = Ref[T]{}
	default:
		return fmt.Errorf("cannot decode %s into a reference", t)
	}
	return nil
}

// MarshalJSON renders the populated document, or the hex id otherwise.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.Populated() {
		return json.Marshal(r.Doc)
	}
	if r.ID.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID.Hex())
}

func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	var hex string
	if err := json.Unmarshal(data, &hex); err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return err
	}
	*r = Ref[T]{ID: id}
	return nil
}
