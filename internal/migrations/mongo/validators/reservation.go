package validators

import "go.mongodb.org/mongo-driver/bson"

// ReservationValidator cannot compare start_time with end_time; the service does that.
var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"space_id",
			"owner_id",
			"event_name",
			"start_time",
			"end_time",
			"created_at",
		},
		"additionalProperties": true,
		"properties": bson.M{
			"_id": bson.M{"bsonType": "objectId"},
			"space_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},
			"owner_id":   bson.M{"bsonType": "string", "minLength": 1, "maxLength": 64},
			"event_name": bson.M{"bsonType": "string", "minLength": 1, "maxLength": 255},
			"notes":      bson.M{"bsonType": "string", "maxLength": 2000},
			"start_time": bson.M{"bsonType": "date"},
			"end_time":   bson.M{"bsonType": "date"},
			"created_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
