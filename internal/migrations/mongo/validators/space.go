package validators

import (
	"spacebook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

var SpaceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"type",
			"location",
			"capacity",
			"open_time",
			"close_time",
			"slot_minutes",
			"time_zone",
			"created_at",
		},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":         bson.M{"bsonType": "objectId"},
			"name":        bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"type":        bson.M{"bsonType": "string", "enum": model.SpaceTypes()},
			"description": bson.M{"bsonType": "string", "maxLength": 1000},
			"location":    bson.M{"bsonType": "string", "minLength": 2, "maxLength": 200},
			"capacity":    bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
			"hourly_rate": bson.M{"bsonType": []string{"double", "int", "long"}, "minimum": 0},
			"image_url":   bson.M{"bsonType": "string"},
			"open_time": bson.M{
				"bsonType": "string",
				"pattern":  clockPattern,
			},
			"close_time": bson.M{
				"bsonType": "string",
				"pattern":  clockPattern,
			},
			"slot_minutes": bson.M{"bsonType": []string{"int", "long"}, "minimum": 5, "maximum": 1440},
			"time_zone":    bson.M{"bsonType": "string"},
			"created_at":   bson.M{"bsonType": "date"},
			"updated_at":   bson.M{"bsonType": "date"},
		},
	},
}

const clockPattern = `^([01][0-9]|2[0-3]):[0-5][0-9]$`
