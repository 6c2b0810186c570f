package sqlinline

// Legacy profile tables predate the embedded profile columns on users. Each
// holds one jsonb document per user.

const QLegacyTableExists = `--sql 0f4c8d27-5b8e-4a53-9a0e-6a2b1c7d3e91
select to_regclass($1::text) is not null;
`

const QCountLegacyVolunteerProfiles = `--sql 5e2a7b13-c4d9-4f61-8b07-2d9e6f1a8c34
select count(*)
from volunteer_profiles l
join users u on u.id = l.user_id
where u.role = 'volunteer'
  and (u.volunteer_profile is null or u.volunteer_profile = '{}'::jsonb);
`

const QMergeLegacyVolunteerProfiles = `--sql a83d61f5-27be-4c0e-9f14-b5c2e8d7a640
update users u
set volunteer_profile = l.profile,
    onboarding_completed = true,
    updated_at = now()
from volunteer_profiles l
where l.user_id = u.id
  and u.role = 'volunteer'
  and (u.volunteer_profile is null or u.volunteer_profile = '{}'::jsonb);
`

const QCountLegacyNGOProfiles = `--sql 91c7e4a2-3f08-4b6d-a5e9-7d1f2c8b0e53
select count(*)
from ngo_profiles l
join users u on u.id = l.user_id
where u.role = 'ngo'
  and (u.ngo_profile is null or u.ngo_profile = '{}'::jsonb);
`

const QMergeLegacyNGOProfiles = `--sql 3b6f0d84-e1a7-4c92-8d35-f6a0b9c2e718
update users u
set ngo_profile = l.profile,
    onboarding_completed = true,
    updated_at = now()
from ngo_profiles l
where l.user_id = u.id
  and u.role = 'ngo'
  and (u.ngo_profile is null or u.ngo_profile = '{}'::jsonb);
`
