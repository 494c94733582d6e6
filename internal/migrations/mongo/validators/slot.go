package validators

import (
	"slotbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

func timeSlotLabels() []string {
	labels := make([]string, 0, len(model.DailySchedule))
	for _, ts := range model.DailySchedule {
		labels = append(labels, ts.String())
	}
	return labels
}

var SlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"time_slot",
			"date",
			"status",
			"is_booked",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"time_slot": bson.M{
				"bsonType": "string",
				"enum":     timeSlotLabels(),
			},

			"date": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					string(model.SlotOpen),
					string(model.SlotBooked),
				},
			},

			"customer_id": bson.M{
				"bsonType": []string{"objectId", "null"},
			},

			"is_booked": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
