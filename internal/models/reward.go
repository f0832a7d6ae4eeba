// internal/models/reward.go
package models

// Reward is one redeemable incentive. Cost is in PKR.
type Reward struct {
	Name  string `json:"name"`
	Cost  int    `json:"cost"`
	Value string `json:"value"`
}

// Reward catalog keys.
const (
	RewardPremiumDiscount  = "premium_discount"
	RewardStandardDiscount = "standard_discount"
	RewardFreeShipping     = "free_shipping"
	RewardGiftVoucher      = "gift_voucher"
	RewardLoyaltyPoints    = "loyalty_points"
	RewardEarlyAccess      = "early_access"
	RewardBirthdaySpecial  = "birthday_special"
	RewardBundleOffer      = "bundle_offer"
	RewardVIPUpgrade       = "vip_upgrade"
	RewardCashback         = "cashback"
)

var rewardCatalog = map[string]Reward{
	RewardPremiumDiscount:  {Name: "20% Premium Discount", Cost: 500, Value: "20% off next purchase"},
	RewardStandardDiscount: {Name: "10% Standard Discount", Cost: 200, Value: "10% off next purchase"},
	RewardFreeShipping:     {Name: "Free Shipping Voucher", Cost: 150, Value: "Free shipping on next order"},
	RewardGiftVoucher:      {Name: "PKR 500 Gift Voucher", Cost: 500, Value: "PKR 500 gift card"},
	RewardLoyaltyPoints:    {Name: "1000 Loyalty Points", Cost: 100, Value: "1000 bonus points"},
	RewardEarlyAccess:      {Name: "Early Access to Sales", Cost: 50, Value: "24-hour early access"},
	RewardBirthdaySpecial:  {Name: "Birthday Special Offer", Cost: 300, Value: "Special birthday gift"},
	RewardBundleOffer:      {Name: "Bundle Deal", Cost: 250, Value: "Buy 2 Get 1 Free"},
	RewardVIPUpgrade:       {Name: "VIP Tier Upgrade", Cost: 1000, Value: "Upgrade to next tier"},
	RewardCashback:         {Name: "15% Cashback", Cost: 350, Value: "15% cashback on purchase"},
}

// LookupReward returns the catalog entry for key.
func LookupReward(key string) (Reward, bool) {
	r, ok := rewardCatalog[key]
	return r, ok
}

// RewardKeys lists every catalog key.
func RewardKeys() []string {
	keys := make([]string, 0, len(rewardCatalog))
	for k := range rewardCatalog {
		keys = append(keys, k)
	}
	return keys
}
