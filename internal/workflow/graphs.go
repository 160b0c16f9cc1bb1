package workflow

import "procurement/internal/model"

var RFx = NewMachine("rfx", map[model.RFxStatus][]model.RFxStatus{
	model.RFxDraft:     {model.RFxPublished, model.RFxActive, model.RFxCancelled},
	model.RFxPublished: {model.RFxActive, model.RFxClosed, model.RFxCancelled},
	model.RFxActive:    {model.RFxClosed, model.RFxCancelled},
})

var Auction = NewMachine("auction", map[model.AuctionStatus][]model.AuctionStatus{
	model.AuctionScheduled: {model.AuctionLive, model.AuctionCancelled},
	model.AuctionLive:      {model.AuctionCompleted, model.AuctionCancelled},
})

var DirectOrder = NewMachine("direct_order", map[model.DirectOrderStatus][]model.DirectOrderStatus{
	model.DirectOrderDraft:           {model.DirectOrderPendingApproval, model.DirectOrderCancelled},
	model.DirectOrderPendingApproval: {model.DirectOrderApproved, model.DirectOrderRejected},
	model.DirectOrderApproved:        {model.DirectOrderSubmitted, model.DirectOrderCancelled},
	model.DirectOrderSubmitted:       {model.DirectOrderCompleted, model.DirectOrderCancelled},
})

var PurchaseOrder = NewMachine("purchase_order", map[model.POStatus][]model.POStatus{
	model.PODraft:           {model.POPendingApproval, model.POCancelled},
	model.POPendingApproval: {model.POApproved, model.PORejected},
	model.POApproved:        {model.POIssued, model.POCancelled},
	model.PORejected:        {model.POCancelled},
	model.POIssued:          {model.POAcknowledged, model.POCancelled},
	model.POAcknowledged:    {model.POShipped, model.POCancelled},
	model.POShipped:         {model.PODelivered},
	model.PODelivered:       {model.POInvoiced},
	model.POInvoiced:        {model.POPaid},
})

// Vendor onboarding. Suspension is reversible.
var Vendor = NewMachine("vendor", map[model.VendorStatus][]model.VendorStatus{
	model.VendorPending:   {model.VendorApproved, model.VendorRejected, model.VendorSuspended},
	model.VendorApproved:  {model.VendorSuspended},
	model.VendorSuspended: {model.VendorApproved},
})
